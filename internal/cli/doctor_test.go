package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/models"
)

func stubPing(t *testing.T, version string, err error) {
	t.Helper()
	old := pingFunc
	pingFunc = func(context.Context, string) (string, int, error) { return version, 4242, err }
	t.Cleanup(func() { pingFunc = old })
}

func TestDoctorPassesOnFreshStore(t *testing.T) {
	ctx, _, out := setupTestContext(t)
	stubPing(t, constants.Version, nil)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed: %v\n%s", err, out.String())
	}
	for _, want := range []string{"✓ Store reachable: OK", "✓ Data validation: OK", "⚠ Backups present: WARNING", "✓ Agent running: OK"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestDoctorFlagsOverlappingLists(t *testing.T) {
	ctx, _, out := setupTestContext(t)
	stubPing(t, constants.Version, nil)

	s := models.DefaultSettings()
	s.Allowlist = append(s.Allowlist, s.Blocklist[0])
	if err := ctx.Store.SaveSettings(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail")
	}
	if !strings.Contains(out.String(), "both the blocklist and the allowlist") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestDoctorWarnsOnAgentVersionMismatch(t *testing.T) {
	ctx, _, out := setupTestContext(t)
	stubPing(t, "v0.0.1", nil)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("a version mismatch is only a warning: %v", err)
	}
	if !strings.Contains(out.String(), "⚠ Agent running: WARNING") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
