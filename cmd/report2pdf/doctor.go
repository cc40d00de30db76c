package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	report2pdf "github.com/ledgerline/go-report2pdf"
	"github.com/ledgerline/go-report2pdf/internal/config"
)

// doctorReport is the JSON document printed by --doctor.
type doctorReport struct {
	Version string        `json:"version"`
	Checks  []doctorCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// runDoctor probes the rendering environment and prints a JSON report.
// The browser check failing is not fatal: the fallback strategies still
// produce output without one.
func runDoctor(cfg *config.Config) int {
	report := doctorReport{Version: Version, Healthy: true}

	if path, err := report2pdf.LocateBrowser(); err != nil {
		report.Checks = append(report.Checks, doctorCheck{
			Name:   "browser",
			OK:     false,
			Detail: err.Error() + " (fallback renderers remain available)",
		})
	} else {
		report.Checks = append(report.Checks, doctorCheck{
			Name: "browser", OK: true, Detail: path,
		})
	}

	for _, dir := range []struct{ name, path string }{
		{"work directory", cfg.Job.WorkDir},
		{"data directory", cfg.Job.DataDir},
	} {
		check := doctorCheck{Name: dir.name, Detail: dir.path}
		if err := checkWritable(dir.path); err != nil {
			check.Detail = fmt.Sprintf("%s: %v", dir.path, err)
			report.Healthy = false
		} else {
			check.OK = true
		}
		report.Checks = append(report.Checks, check)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Println(string(out))

	if !report.Healthy {
		return 1
	}
	return 0
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".report2pdf-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
