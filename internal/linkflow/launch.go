// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

// LaunchDefaults are the configured SDK parameters that do not come from
// the form.
type LaunchDefaults struct {
	ClientID    string
	Environment string
	EntryPoint  string
}

// LaunchParams are handed to the browser SDK's open call. JSON names match
// the SDK option names.
type LaunchParams struct {
	SessionID   string `json:"sessionId"`
	ClientID    string `json:"clientId"`
	Environment string `json:"environment"`
	Product     string `json:"product"`
	MerchantIDs []int  `json:"merchantIds"`
	EntryPoint  string `json:"entryPoint"`
}

// Launch builds the SDK parameters for a flow holding a session. It
// returns false when there is nothing to launch.
func (d LaunchDefaults) Launch(f Flow) (LaunchParams, bool) {
	if f.State != StateLoading || f.SessionID == "" {
		return LaunchParams{}, false
	}
	env := d.Environment
	if env == "" {
		env = "production"
	}
	entry := d.EntryPoint
	if entry == "" {
		entry = "onboarding"
	}
	return LaunchParams{
		SessionID:   f.SessionID,
		ClientID:    d.ClientID,
		Environment: env,
		Product:     f.Product,
		MerchantIDs: []int{f.MerchantID},
		EntryPoint:  entry,
	}, true
}
