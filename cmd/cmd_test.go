package cmd

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Daskott/safecircle/alert"
	devConfig "github.com/Daskott/safecircle/dev/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	options    []alert.ReportOption
	broadcasts [][]string
	history    []string
}

func (b *fakeBackend) ReportOptions(ctx context.Context) ([]alert.ReportOption, error) {
	return b.options, nil
}

func (b *fakeBackend) SendWhatsAppMessages(ctx context.Context, name, procedure, locationLink string, contacts []string) error {
	b.broadcasts = append(b.broadcasts, contacts)
	return nil
}

func (b *fakeBackend) AddHistory(ctx context.Context, situation, phoneNumber, procedure string) error {
	b.history = append(b.history, phoneNumber)
	return nil
}

func setAlertFlags(option string, call, relay bool, lat, long float64) {
	alertOption = option
	alertCallMode = call
	alertRelayMode = relay
	alertLatitude = lat
	alertLongitude = long
}

func TestRunAlert(t *testing.T) {
	backend := &fakeBackend{options: []alert.ReportOption{
		{Name: "Fire", Contacts: []string{"+15550001", "+15550002"}, Procedure: "Evacuate"},
		{Name: "Threat", Contacts: []string{}},
	}}

	t.Run("Should relay to every contact", func(t *testing.T) {
		out := &bytes.Buffer{}
		setAlertFlags("Fire", false, true, 6.5244, 3.3792)

		require.Nil(t, runAlert(context.Background(), out, backend))
		assert.Equal(t, [][]string{{"+15550001", "+15550002"}}, backend.broadcasts)
		assert.Equal(t, []string{"+15550001"}, backend.history)
		assert.Contains(t, out.String(), "+15550001, +15550002")
	})

	t.Run("Should print the call to make", func(t *testing.T) {
		out := &bytes.Buffer{}
		setAlertFlags("Fire", true, false, 6.5244, 3.3792)

		require.Nil(t, runAlert(context.Background(), out, backend))
		assert.Contains(t, out.String(), "tel:+15550001")
	})

	t.Run("Should print the WhatsApp link", func(t *testing.T) {
		out := &bytes.Buffer{}
		setAlertFlags("Fire", false, false, 6.5244, 3.3792)

		require.Nil(t, runAlert(context.Background(), out, backend))
		assert.Contains(t, out.String(), "https://wa.me/15550001?text=")
	})

	t.Run("Should fail without a location", func(t *testing.T) {
		setAlertFlags("Fire", false, true, math.NaN(), math.NaN())

		err := runAlert(context.Background(), &bytes.Buffer{}, backend)
		assert.True(t, errors.Is(err, alert.ErrLocationServicesDisabled))
	})

	t.Run("Should fail for options without contacts", func(t *testing.T) {
		setAlertFlags("Threat", false, true, 6.5244, 3.3792)

		err := runAlert(context.Background(), &bytes.Buffer{}, backend)
		assert.True(t, errors.Is(err, alert.ErrNoContacts))
	})

	t.Run("Should fail for unknown options", func(t *testing.T) {
		setAlertFlags("Volcano", false, true, 6.5244, 3.3792)
		assert.NotNil(t, runAlert(context.Background(), &bytes.Buffer{}, backend))
	})
}

func readConfig(t *testing.T, yml string) *viper.Viper {
	config := viper.New()
	config.SetConfigType("yaml")
	require.Nil(t, config.ReadConfig(strings.NewReader(yml)))
	return config
}

func TestDecodeServerConfig(t *testing.T) {
	config, err := decodeServerConfig(readConfig(t, devConfig.SERVER_YML))
	require.Nil(t, err, "Dev config should always be valid")

	assert.Equal(t, 3000, config.SafeCircle.Listener.Port)
	assert.Equal(t, "log", config.WhatsApp.Provider)
	assert.Equal(t, 10, config.SafeCircle.Broadcast.TimeoutInSeconds)
	assert.Contains(t, config.SafeCircle.PrivateKeyPem, "BEGIN PRIVATE KEY")
}

func TestDecodeServerConfigValidation(t *testing.T) {
	cases := []struct {
		description string
		set         map[string]interface{}
	}{
		{"Should reject unknown provider", map[string]interface{}{"whatsapp.provider": "carrier-pigeon"}},
		{"Should require cloud credentials", map[string]interface{}{"whatsapp.provider": "cloud"}},
		{"Should require twilio credentials", map[string]interface{}{"whatsapp.provider": "twilio"}},
		{"Should require a passphrase", map[string]interface{}{"sqlite.passPhrase": ""}},
		{"Should require a bucket when backups are enabled", map[string]interface{}{
			"google.storage.enableSqliteBackupAndSync": true,
			"google.storage.bucket":                    "",
		}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			config := readConfig(t, devConfig.SERVER_YML)
			for key, value := range c.set {
				config.Set(key, value)
			}

			_, err := decodeServerConfig(config)
			assert.NotNil(t, err)
		})
	}
}
