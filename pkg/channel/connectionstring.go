package channel

import (
	"fmt"
	"strings"
)

// AuthMode enumerates the recognized Authentication values in a connection
// string (spec §6.2).
type AuthMode string

const (
	AuthDefaultAzure       AuthMode = "DefaultAzure"
	AuthManagedIdentity    AuthMode = "ManagedIdentity"
	AuthWorkloadIdentity   AuthMode = "WorkloadIdentity"
	AuthEnvironment        AuthMode = "Environment"
	AuthAzureCli           AuthMode = "AzureCli"
	AuthAzurePowerShell    AuthMode = "AzurePowerShell"
	AuthVisualStudio       AuthMode = "VisualStudio"
	AuthVisualStudioCode   AuthMode = "VisualStudioCode"
	AuthInteractiveBrowser AuthMode = "InteractiveBrowser"
	AuthNone               AuthMode = "None"
)

var recognizedAuthModes = map[string]AuthMode{
	"defaultazure":       AuthDefaultAzure,
	"managedidentity":    AuthManagedIdentity,
	"workloadidentity":   AuthWorkloadIdentity,
	"environment":        AuthEnvironment,
	"azurecli":           AuthAzureCli,
	"azurepowershell":    AuthAzurePowerShell,
	"visualstudio":       AuthVisualStudio,
	"visualstudiocode":   AuthVisualStudioCode,
	"interactivebrowser": AuthInteractiveBrowser,
	"none":               AuthNone,
}

// ConnectionString is the parsed form of the worker's connection string.
type ConnectionString struct {
	Endpoint                   string
	Authentication             AuthMode
	TaskHub                    string
	ClientID                   string
	TenantID                   string
	AdditionallyAllowedTenants []string
}

// ParseConnectionString parses the semicolon-separated key=value grammar
// from spec §6.2. Keys are case-insensitive; values are trimmed but keep
// their original case. Endpoint and TaskHub are required; an unrecognized
// Authentication value is a named error.
func ParseConnectionString(s string) (*ConnectionString, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("channel: malformed connection string segment %q", part)
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		fields[key] = val
	}

	endpoint, ok := fields["endpoint"]
	if !ok || endpoint == "" {
		return nil, fmt.Errorf("channel: connection string missing required Endpoint")
	}
	taskHub, ok := fields["taskhub"]
	if !ok || taskHub == "" {
		return nil, fmt.Errorf("channel: connection string missing required TaskHub")
	}

	cs := &ConnectionString{
		Endpoint: endpoint,
		TaskHub:  taskHub,
		ClientID: fields["clientid"],
		TenantID: fields["tenantid"],
	}

	if raw, ok := fields["authentication"]; ok && raw != "" {
		mode, ok := recognizedAuthModes[strings.ToLower(raw)]
		if !ok {
			return nil, fmt.Errorf("channel: unrecognized Authentication mode %q", raw)
		}
		cs.Authentication = mode
	} else {
		cs.Authentication = AuthDefaultAzure
	}

	if raw, ok := fields["additionallyallowedtenants"]; ok && raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				cs.AdditionallyAllowedTenants = append(cs.AdditionallyAllowedTenants, t)
			}
		}
	}

	return cs, nil
}
