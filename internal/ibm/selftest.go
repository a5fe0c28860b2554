package ibm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vk/qasmrun/internal/config"
)

// SelfTest exercises the account's API access step by step: key format,
// authentication, backend listing and least-busy lookup. Progress is
// written to w so the user sees exactly which step failed.
func SelfTest(ctx context.Context, w io.Writer, apiKey string, newClient func(string) *Client) error {
	fmt.Fprintln(w, "🧪 Running IBM Quantum API test...")

	fmt.Fprintln(w, "🔍 Validating API key format...")
	if err := config.ValidateAPIKeyFormat(apiKey); err != nil {
		fmt.Fprintf(w, "❌ %v\n", err)
		return err
	}
	fmt.Fprintf(w, "✓ API key format looks valid (%d characters)\n", len(apiKey))

	client := newClient(apiKey)
	defer client.Close()

	fmt.Fprintln(w, "🔑 Authenticating with IBM Quantum...")
	devices, err := client.Backends(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthError() {
			fmt.Fprintln(w, "❌ Authentication failed: invalid API key")
			fmt.Fprintln(w, "💡 Get a new key from https://quantum.ibm.com/")
		} else {
			fmt.Fprintf(w, "❌ Cannot connect to IBM Quantum: %v\n", err)
		}
		return err
	}
	fmt.Fprintln(w, "✓ Authentication successful!")

	if len(devices) == 0 {
		fmt.Fprintln(w, "⚠️  No backends available")
		return fmt.Errorf("account has no visible backends")
	}

	fmt.Fprintf(w, "✓ Found %d available backends:\n", len(devices))
	shown := devices
	if len(shown) > 10 {
		shown = shown[:10]
	}
	operational := 0
	for _, d := range shown {
		icon := "🔴"
		if d.Operational {
			icon = "🟢"
			operational++
		}
		fmt.Fprintf(w, "  %s %s (qubits: %d, pending: %d, simulator: %v)\n",
			icon, d.Name, d.NumQubits, d.PendingJobs, d.Simulator)
	}
	if len(devices) > 10 {
		fmt.Fprintf(w, "  ... and %d more backends\n", len(devices)-10)
	}

	fmt.Fprintln(w, "🎯 Finding least busy backend...")
	leastBusy, err := client.LeastBusy(ctx)
	if err != nil {
		fmt.Fprintf(w, "⚠️  Could not determine least busy backend: %v\n", err)
		return err
	}
	fmt.Fprintf(w, "✓ Least busy backend: %s (qubits: %d, pending: %d)\n",
		leastBusy.Name, leastBusy.NumQubits, leastBusy.PendingJobs)

	fmt.Fprintln(w, "✅ API test passed!")
	return nil
}
