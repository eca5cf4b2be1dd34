package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EMPLOYEE_ID", "emp-7")
	t.Setenv("TICK_INTERVAL", "2s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.EmployeeID != "emp-7" {
		t.Fatalf("expected EMPLOYEE_ID from the environment, got %q", cfg.EmployeeID)
	}
	if cfg.TickInterval != 2*time.Second {
		t.Fatalf("expected a 2s tick, got %v", cfg.TickInterval)
	}
	if cfg.HRAPITimeout != 10*time.Second || cfg.LocationTimeout != 15*time.Second || cfg.LocationMaxAge != 10*time.Second {
		t.Fatalf("unexpected timeout defaults %+v", cfg)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata, got %s", cfg.Location())
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		HRAPIURL:     "https://hr.example.com/api",
		EmployeeID:   "emp-1",
		CompanyCode:  "ACME",
		Timezone:     "UTC",
		TickInterval: time.Second,
	}
	if err := valid.Validate(true); err != nil {
		t.Fatalf("expected a valid config, got %v", err)
	}

	noEmployee := valid
	noEmployee.EmployeeID = ""
	if err := noEmployee.Validate(false); err != nil {
		t.Fatalf("expected the employee to be optional, got %v", err)
	}
	if err := noEmployee.Validate(true); err == nil || !strings.Contains(err.Error(), "EMPLOYEE_ID") {
		t.Fatalf("expected a missing EMPLOYEE_ID error, got %v", err)
	}

	broken := Config{HRAPIURL: "not a url", Timezone: "Mars/Olympus"}
	err := broken.Validate(false)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"HR_API_URL", "COMPANY_CODE", "TIMEZONE", "TICK_INTERVAL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}
