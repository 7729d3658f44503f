// Package alert decides how an emergency alert reaches a user's contacts:
// a direct call, a WhatsApp share link opened on the device, or a broadcast
// relayed by the SafeCircle backend.
package alert

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNoContacts               = errors.New("no contacts configured for this report option")
	ErrLocationServicesDisabled = errors.New("location services are disabled")
	ErrLocationPermissionDenied = errors.New("location permission denied")
	ErrLocationUnavailable      = errors.New("unable to get current location")
)

type Mode string

const (
	ModeCall      Mode = "call"
	ModeLocalLink Mode = "local-link"
	ModeRelay     Mode = "relay"
)

type ReportOption struct {
	Name      string   `json:"name"`
	Contacts  []string `json:"contacts"`
	Procedure string   `json:"procedure"`
}

type Position struct {
	Latitude  float64
	Longitude float64
}

// Settings are the user's alert preferences. CallMode takes precedence over UseProviderRelay.
type Settings struct {
	CallMode         bool
	UseProviderRelay bool
}

type Locator interface {
	ServicesEnabled(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (Position, error)
}

type Dialer interface {
	Dial(ctx context.Context, phoneNumber string) error
}

type LinkOpener interface {
	Open(ctx context.Context, link string) error
}

// Backend is the part of the SafeCircle api used to relay alerts
type Backend interface {
	SendWhatsAppMessages(ctx context.Context, name, procedure, locationLink string, contacts []string) error
	AddHistory(ctx context.Context, situation, phoneNumber, procedure string) error
}

// Outcome describes an alert that went out
type Outcome struct {
	Mode         Mode
	Recipients   []string
	LocationLink string

	// Link opened in local-link mode
	Link string

	// Set when the alert went out but couldn't be recorded in the user's history
	HistoryErr error
}

type Trigger struct {
	Locator Locator
	Dialer  Dialer
	Opener  LinkOpener
	Backend Backend

	// Now defaults to time.Now
	Now func() time.Time
}

// Send alerts the contacts of 'option' using the mode picked from 'settings'.
// Nothing is sent when the option has no contacts or the location can't be resolved.
func (t *Trigger) Send(ctx context.Context, option ReportOption, settings Settings) (*Outcome, error) {
	if len(option.Contacts) == 0 {
		return nil, ErrNoContacts
	}
	firstContact := option.Contacts[0]

	position, err := t.locate(ctx)
	if err != nil {
		return nil, err
	}
	locationLink := MapsLink(position)

	switch SelectMode(settings) {
	case ModeCall:
		if err := t.Dialer.Dial(ctx, firstContact); err != nil {
			return nil, fmt.Errorf("unable to call %v: %w", firstContact, err)
		}

		return &Outcome{Mode: ModeCall, Recipients: []string{firstContact}, LocationLink: locationLink}, nil

	case ModeLocalLink:
		link := WhatsAppLink(firstContact, LocalMessage(option, locationLink, t.now()))
		openErr := t.Opener.Open(ctx, link)

		// The attempt is recorded even when WhatsApp couldn't be opened
		historyErr := t.Backend.AddHistory(ctx, option.Name, firstContact, option.Procedure)
		if openErr != nil {
			return nil, fmt.Errorf("unable to open WhatsApp: %w", openErr)
		}

		return &Outcome{
			Mode:         ModeLocalLink,
			Recipients:   []string{firstContact},
			LocationLink: locationLink,
			Link:         link,
			HistoryErr:   historyErr,
		}, nil

	default:
		err := t.Backend.SendWhatsAppMessages(ctx, option.Name, option.Procedure, locationLink, option.Contacts)
		if err != nil {
			return nil, fmt.Errorf("unable to send alert: %w", err)
		}

		// One entry for the whole broadcast, recorded against the first contact
		return &Outcome{
			Mode:         ModeRelay,
			Recipients:   option.Contacts,
			LocationLink: locationLink,
			HistoryErr:   t.Backend.AddHistory(ctx, option.Name, firstContact, option.Procedure),
		}, nil
	}
}

func (t *Trigger) locate(ctx context.Context) (Position, error) {
	enabled, err := t.Locator.ServicesEnabled(ctx)
	if err != nil || !enabled {
		return Position{}, ErrLocationServicesDisabled
	}

	granted, err := t.Locator.RequestPermission(ctx)
	if err != nil || !granted {
		return Position{}, ErrLocationPermissionDenied
	}

	position, err := t.Locator.CurrentPosition(ctx)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	return position, nil
}

func (t *Trigger) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func SelectMode(settings Settings) Mode {
	if settings.CallMode {
		return ModeCall
	}

	if settings.UseProviderRelay {
		return ModeRelay
	}

	return ModeLocalLink
}

func MapsLink(position Position) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", position.Latitude, position.Longitude)
}

// LocalMessage is the text shared through the device's own WhatsApp app
func LocalMessage(option ReportOption, locationLink string, at time.Time) string {
	return strings.Join([]string{
		"EMERGENCY ALERT",
		option.Name,
		option.Procedure,
		"Location: " + locationLink,
		at.Format("2006-01-02 15:04:05"),
	}, "\n")
}

// WhatsAppLink returns a wa.me link which opens a chat with 'phoneNumber', prefilled with 'message'
func WhatsAppLink(phoneNumber, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phoneNumber)

	return fmt.Sprintf("https://wa.me/%v?text=%v", digits, strings.ReplaceAll(url.QueryEscape(message), "+", "%20"))
}
