// Package telemetry reports which sonash commands are run, for users who opted in.
//
// Hook verbs run on every tool call and are never reported. A nil *Reporter
// is valid and reports nothing.
package telemetry

import (
	"net"
	"net/http"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OptOutEnvVar disables telemetry when set to any non-empty value.
const OptOutEnvVar = "SONASH_TELEMETRY_OPTOUT"

// EventName is the single event sonash sends.
const EventName = "sonash_command"

// Set at build time.
var (
	PostHogAPIKey   = "phc_development_key"
	PostHogEndpoint = "https://eu.i.posthog.com"
)

// networkBudget caps every phase of the upload so a slow network never
// delays the command's exit noticeably.
const networkBudget = 100 * time.Millisecond

// Usage is the project state attached to each event.
type Usage struct {
	TeamMode     bool
	HooksEnabled bool
}

// Reporter enqueues command events and flushes them on Close.
type Reporter struct {
	client    posthog.Client
	installID string
}

// New returns a reporter when optIn is set and true and OptOutEnvVar is
// empty. Otherwise, or when the client cannot be built, it returns nil.
func New(version string, optIn *bool) *Reporter {
	if os.Getenv(OptOutEnvVar) != "" || optIn == nil || !*optIn {
		return nil
	}
	installID, err := machineid.ProtectedID("sonash")
	if err != nil {
		return nil
	}
	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:           PostHogEndpoint,
		Transport:          boundedTransport(),
		ShutdownTimeout:    networkBudget,
		BatchUploadTimeout: 2 * networkBudget,
		Logger:             discardLogger{},
		DisableGeoIP:       posthog.Ptr(true),
		DefaultEventProperties: posthog.NewProperties().
			Set("version", version).
			Set("platform", runtime.GOOS+"/"+runtime.GOARCH),
	})
	if err != nil {
		return nil
	}
	return &Reporter{client: client, installID: installID}
}

func boundedTransport() *http.Transport {
	return &http.Transport{
		DialContext:           (&net.Dialer{Timeout: networkBudget}).DialContext,
		TLSHandshakeTimeout:   networkBudget,
		ResponseHeaderTimeout: networkBudget,
	}
}

// Track enqueues one event for cmd if it is Trackable.
func (r *Reporter) Track(cmd *cobra.Command, u Usage) {
	if r == nil || r.client == nil || !Trackable(cmd) {
		return
	}
	_ = r.client.Enqueue(posthog.Capture{ //nolint:errcheck // best effort
		DistinctId: r.installID,
		Event:      EventName,
		Properties: Properties(cmd, u),
	})
}

// Close flushes queued events.
func (r *Reporter) Close() {
	if r == nil || r.client == nil {
		return
	}
	_ = r.client.Close()
}

// Trackable is false for nil, help, completion, and anything under a hidden
// command.
func Trackable(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	if slices.Contains([]string{"help", "completion", "__complete"}, cmd.Name()) {
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Hidden {
			return false
		}
	}
	return true
}

// Properties describes cmd by its path and the names of the flags the user
// set. Flag values are never sent.
func Properties(cmd *cobra.Command, u Usage) posthog.Properties {
	var set []string
	cmd.Flags().Visit(func(f *pflag.Flag) { set = append(set, f.Name) })

	props := posthog.NewProperties().
		Set("command", cmd.CommandPath()).
		Set("team_mode", u.TeamMode).
		Set("hooks_enabled", u.HooksEnabled)
	if len(set) > 0 {
		props.Set("flags", strings.Join(set, ","))
	}
	return props
}

// discardLogger drops the client's own logging; upload timeouts are routine.
type discardLogger struct{}

func (discardLogger) Logf(string, ...any)   {}
func (discardLogger) Debugf(string, ...any) {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Errorf(string, ...any) {}
