package alert

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocator struct {
	disabled    bool
	denied      bool
	positionErr error
	calls       int
}

func (l *fakeLocator) ServicesEnabled(ctx context.Context) (bool, error) {
	l.calls++
	return !l.disabled, nil
}

func (l *fakeLocator) RequestPermission(ctx context.Context) (bool, error) {
	l.calls++
	return !l.denied, nil
}

func (l *fakeLocator) CurrentPosition(ctx context.Context) (Position, error) {
	l.calls++
	if l.positionErr != nil {
		return Position{}, l.positionErr
	}
	return Position{Latitude: 6.5244, Longitude: 3.3792}, nil
}

type fakeDevice struct {
	dialed  []string
	opened  []string
	openErr error
}

func (d *fakeDevice) Dial(ctx context.Context, phoneNumber string) error {
	d.dialed = append(d.dialed, phoneNumber)
	return nil
}

func (d *fakeDevice) Open(ctx context.Context, link string) error {
	d.opened = append(d.opened, link)
	return d.openErr
}

type historyRecord struct {
	situation, phoneNumber, procedure string
}

type fakeBackend struct {
	broadcasts [][]string
	history    []historyRecord
	historyErr error
}

func (b *fakeBackend) SendWhatsAppMessages(ctx context.Context, name, procedure, locationLink string, contacts []string) error {
	b.broadcasts = append(b.broadcasts, contacts)
	return nil
}

func (b *fakeBackend) AddHistory(ctx context.Context, situation, phoneNumber, procedure string) error {
	if b.historyErr != nil {
		return b.historyErr
	}
	b.history = append(b.history, historyRecord{situation, phoneNumber, procedure})
	return nil
}

func (b *fakeBackend) networkCalls() int {
	return len(b.broadcasts) + len(b.history)
}

var fire = ReportOption{
	Name:      "Fire",
	Contacts:  []string{"+15550001", "+15550002"},
	Procedure: "Evacuate",
}

func newTrigger() (*Trigger, *fakeLocator, *fakeDevice, *fakeBackend) {
	locator := &fakeLocator{}
	device := &fakeDevice{}
	backend := &fakeBackend{}

	trigger := &Trigger{
		Locator: locator,
		Dialer:  device,
		Opener:  device,
		Backend: backend,
		Now:     func() time.Time { return time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC) },
	}

	return trigger, locator, device, backend
}

func TestRelayModeFireScenario(t *testing.T) {
	trigger, _, device, backend := newTrigger()

	outcome, err := trigger.Send(context.Background(), fire, Settings{UseProviderRelay: true})
	require.Nil(t, err)

	assert.Equal(t, ModeRelay, outcome.Mode)
	require.Len(t, backend.broadcasts, 1)
	assert.Equal(t, fire.Contacts, backend.broadcasts[0], "Should broadcast to every contact")

	require.Len(t, backend.history, 1, "Should record exactly one history entry")
	assert.Equal(t, historyRecord{"Fire", "+15550001", "Evacuate"}, backend.history[0])

	assert.Empty(t, device.dialed)
	assert.Empty(t, device.opened)
	assert.Equal(t, "https://www.google.com/maps?q=6.5244,3.3792", outcome.LocationLink)
}

func TestNoContacts(t *testing.T) {
	settings := []Settings{{CallMode: true}, {UseProviderRelay: true}, {}}

	for _, s := range settings {
		trigger, locator, device, backend := newTrigger()

		_, err := trigger.Send(context.Background(), ReportOption{Name: "Threat", Contacts: []string{}}, s)
		assert.True(t, errors.Is(err, ErrNoContacts))

		assert.Zero(t, backend.networkCalls(), "Should make no network calls")
		assert.Zero(t, locator.calls, "Should not even look up the location")
		assert.Empty(t, device.dialed)
		assert.Empty(t, device.opened)
	}
}

func TestLocationFailures(t *testing.T) {
	cases := []struct {
		description string
		locator     *fakeLocator
		expectedErr error
	}{
		{"Should fail when location services are disabled", &fakeLocator{disabled: true}, ErrLocationServicesDisabled},
		{"Should fail when permission is denied", &fakeLocator{denied: true}, ErrLocationPermissionDenied},
		{"Should fail when position is unavailable", &fakeLocator{positionErr: errors.New("timeout")}, ErrLocationUnavailable},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			trigger, _, device, backend := newTrigger()
			trigger.Locator = c.locator

			_, err := trigger.Send(context.Background(), fire, Settings{UseProviderRelay: true})
			assert.True(t, errors.Is(err, c.expectedErr))

			assert.Zero(t, backend.networkCalls(), "No alert without a location")
			assert.Empty(t, device.dialed)
		})
	}
}

func TestCallMode(t *testing.T) {
	trigger, _, device, backend := newTrigger()

	outcome, err := trigger.Send(context.Background(), fire, Settings{CallMode: true, UseProviderRelay: true})
	require.Nil(t, err)

	assert.Equal(t, ModeCall, outcome.Mode, "Call mode takes precedence")
	assert.Equal(t, []string{"+15550001"}, device.dialed, "Should only call the first contact")
	assert.Zero(t, backend.networkCalls(), "Calls bypass messaging & history")
}

func TestLocalLinkMode(t *testing.T) {
	trigger, _, device, backend := newTrigger()

	outcome, err := trigger.Send(context.Background(), fire, Settings{})
	require.Nil(t, err)

	assert.Equal(t, ModeLocalLink, outcome.Mode)
	require.Len(t, device.opened, 1)
	assert.True(t, strings.HasPrefix(device.opened[0], "https://wa.me/15550001?text="))
	assert.Equal(t, outcome.Link, device.opened[0])

	link, err := url.Parse(device.opened[0])
	require.Nil(t, err)
	assert.Equal(t,
		"EMERGENCY ALERT\nFire\nEvacuate\nLocation: https://www.google.com/maps?q=6.5244,3.3792\n2024-03-01 14:30:00",
		link.Query().Get("text"))

	assert.Empty(t, backend.broadcasts, "Local links don't go through the backend")
	require.Len(t, backend.history, 1)
	assert.Equal(t, "+15550001", backend.history[0].phoneNumber)
}

func TestLocalLinkOpenFailureIsStillRecorded(t *testing.T) {
	trigger, _, device, backend := newTrigger()
	device.openErr = errors.New("WhatsApp is not installed")

	outcome, err := trigger.Send(context.Background(), fire, Settings{})
	assert.Nil(t, outcome)
	assert.True(t, errors.Is(err, device.openErr))

	require.Len(t, backend.history, 1, "The attempt should still be recorded")
	assert.Equal(t, historyRecord{"Fire", "+15550001", "Evacuate"}, backend.history[0])
}

func TestHistoryFailureDoesNotFailAlert(t *testing.T) {
	trigger, _, _, backend := newTrigger()
	backend.historyErr = errors.New("server unavailable")

	outcome, err := trigger.Send(context.Background(), fire, Settings{UseProviderRelay: true})
	require.Nil(t, err)

	assert.Len(t, backend.broadcasts, 1)
	assert.NotNil(t, outcome.HistoryErr)
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("+1 (555) 0001", "a b&c")
	assert.Equal(t, "https://wa.me/15550001?text=a%20b%26c", link)
}

func TestDefaultReportOptions(t *testing.T) {
	options := DefaultReportOptions()
	require.Len(t, options, 5)

	option, ok := FindOption(options, "Medical Emergency")
	assert.True(t, ok)
	assert.Empty(t, option.Contacts)

	_, ok = FindOption(options, "fire")
	assert.False(t, ok, "Names are case-sensitive")
}
