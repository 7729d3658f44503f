package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Daskott/safecircle/alert"
	"github.com/Daskott/safecircle/client"
	"github.com/Daskott/safecircle/shared"
	"github.com/go-playground/validator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	alertOption    string
	alertCallMode  bool
	alertRelayMode bool
	alertLatitude  float64
	alertLongitude float64
)

// alertCmd represents the alert command
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert the contacts of one of your report options",
	Long: `Alert the contacts of one of your report options with your location.

By default a WhatsApp link for your first contact is printed. Use --relay to have
the server message every contact, or --call to call your first contact.`,
	Example: `  safecircle alert --option Fire --relay --lat 6.5244 --long 3.3792 --api http://localhost:3000 --token <token>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		clientConfig, err := alertClientConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		return runAlert(ctx, cmd.OutOrStdout(), client.New(clientConfig.ApiURL, clientConfig.Token))
	},
}

func init() {
	rootCmd.AddCommand(alertCmd)

	alertCmd.Flags().StringVar(&alertOption, "option", "", "name of the report option e.g. Fire")
	alertCmd.Flags().BoolVar(&alertCallMode, "call", false, "call the first contact instead of messaging")
	alertCmd.Flags().BoolVar(&alertRelayMode, "relay", false, "have the server message every contact")
	alertCmd.Flags().Float64Var(&alertLatitude, "lat", math.NaN(), "your current latitude")
	alertCmd.Flags().Float64Var(&alertLongitude, "long", math.NaN(), "your current longitude")
	alertCmd.Flags().String("api", "", "safecircle api url (env: SAFECIRCLE_API_URL)")
	alertCmd.Flags().String("token", "", "your safecircle token (env: SAFECIRCLE_TOKEN)")

	alertCmd.MarkFlagRequired("option")
}

type alertBackend interface {
	alert.Backend
	ReportOptions(ctx context.Context) ([]alert.ReportOption, error)
}

func runAlert(ctx context.Context, out io.Writer, backend alertBackend) error {
	options, err := backend.ReportOptions(ctx)
	if err != nil {
		return err
	}

	option, ok := alert.FindOption(options, alertOption)
	if !ok {
		return formattedError("no report option called %q", alertOption)
	}

	device := terminalDevice{out: out}
	trigger := alert.Trigger{
		Locator: fixedLocator{latitude: alertLatitude, longitude: alertLongitude},
		Dialer:  device,
		Opener:  device,
		Backend: backend,
	}

	outcome, err := trigger.Send(ctx, option, alert.Settings{CallMode: alertCallMode, UseProviderRelay: alertRelayMode})
	if err != nil {
		return err
	}

	if outcome.Mode == alert.ModeRelay {
		fmt.Fprintf(out, "Alert sent to %v\n", strings.Join(outcome.Recipients, ", "))
	}

	if outcome.HistoryErr != nil {
		fmt.Fprintln(out, warningLabel, "alert was not saved to your history:", outcome.HistoryErr)
	}

	return nil
}

func alertClientConfig(cmd *cobra.Command) (*shared.ClientConfig, error) {
	config := viper.New()
	config.BindPFlag("apiUrl", cmd.Flags().Lookup("api"))
	config.BindPFlag("token", cmd.Flags().Lookup("token"))
	config.BindEnv("apiUrl", "SAFECIRCLE_API_URL")
	config.BindEnv("token", "SAFECIRCLE_TOKEN")

	clientConfig := shared.ClientConfig{}
	if err := config.Unmarshal(&clientConfig); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(clientConfig); err != nil {
		return nil, formattedError("a valid api url is required, use --api or SAFECIRCLE_API_URL")
	}

	return &clientConfig, nil
}

// fixedLocator reports the position given on the command line.
// Location services count as disabled when no position was given.
type fixedLocator struct {
	latitude  float64
	longitude float64
}

func (l fixedLocator) ServicesEnabled(ctx context.Context) (bool, error) {
	return !math.IsNaN(l.latitude) && !math.IsNaN(l.longitude), nil
}

func (l fixedLocator) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (l fixedLocator) CurrentPosition(ctx context.Context) (alert.Position, error) {
	if math.Abs(l.latitude) > 90 || math.Abs(l.longitude) > 180 {
		return alert.Position{}, fmt.Errorf("invalid coordinates %v,%v", l.latitude, l.longitude)
	}

	return alert.Position{Latitude: l.latitude, Longitude: l.longitude}, nil
}

// terminalDevice prints what a phone would do, since a terminal can't call or open WhatsApp
type terminalDevice struct {
	out io.Writer
}

func (d terminalDevice) Dial(ctx context.Context, phoneNumber string) error {
	_, err := fmt.Fprintf(d.out, "Call %v now: tel:%v\n", phoneNumber, phoneNumber)
	return err
}

func (d terminalDevice) Open(ctx context.Context, link string) error {
	_, err := fmt.Fprintf(d.out, "Open this link to send your alert on WhatsApp:\n%v\n", link)
	return err
}
