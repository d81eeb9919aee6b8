package pages

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/logging"
)

// Placeholder names used by the templates.
const (
	PlaceholderRootWebTitle    = "rootWebTitle"
	PlaceholderHostName        = "hostName"
	PlaceholderFirmwareVersion = "firmwareVersion"
	PlaceholderChipID          = "chipId"
	PlaceholderCoreVersion     = "coreVersion"
	PlaceholderCPUFreq         = "cpuFreq"
	PlaceholderFreeHeap        = "freeHeap"
)

//go:embed templates/root.html
var rootTemplate string

//go:embed templates/admin.html
var adminTemplate string

//go:embed templates/notfound.html
var notFoundTemplate string

// Identity holds the values that are fixed for the process lifetime.
type Identity struct {
	Title           string
	Hostname        string
	FirmwareVersion string
}

// Set renders the device's pages. Templates are read-only; every call
// produces a fresh string and nothing rendered is cached.
type Set struct {
	identity Identity
	metrics  Metrics
}

// New creates a page set.
func New(identity Identity, metrics Metrics) *Set {
	return &Set{identity: identity, metrics: metrics}
}

// Root renders the status page, reading system metrics now.
func (s *Set) Root(ctx context.Context) string {
	return Render(rootTemplate, s.RootValues(ctx))
}

// Admin renders the login stub.
func (s *Set) Admin() string {
	return Render(adminTemplate, s.staticValues())
}

// NotFound returns the static not-found page.
func (s *Set) NotFound() string {
	return notFoundTemplate
}

// RootValues returns the full placeholder set of the status page. Dynamic
// values are evaluated only when rendered.
func (s *Set) RootValues(ctx context.Context) Values {
	values := s.staticValues()

	values[PlaceholderChipID] = func() string {
		id, err := s.metrics.ChipID(ctx)
		return orUnknown(PlaceholderChipID, id, err)
	}
	values[PlaceholderCoreVersion] = func() string {
		v, err := s.metrics.CoreVersion(ctx)
		return orUnknown(PlaceholderCoreVersion, v, err)
	}
	values[PlaceholderCPUFreq] = func() string {
		mhz, err := s.metrics.CPUFrequencyMHz(ctx)
		return orUnknown(PlaceholderCPUFreq, strconv.FormatFloat(mhz, 'f', 0, 64), err)
	}
	values[PlaceholderFreeHeap] = func() string {
		return strconv.FormatUint(s.metrics.FreeHeap(), 10)
	}

	return values
}

func (s *Set) staticValues() Values {
	return Values{
		PlaceholderRootWebTitle:    Static(html.EscapeString(s.identity.Title)),
		PlaceholderHostName:        Static(html.EscapeString(s.identity.Hostname)),
		PlaceholderFirmwareVersion: Static(html.EscapeString(s.identity.FirmwareVersion)),
	}
}

func orUnknown(name, value string, err error) string {
	if err != nil {
		logging.Debug("Metric unavailable", zap.String("placeholder", name), zap.Error(err))
		return Unknown
	}
	return html.EscapeString(value)
}

// Template returns the raw template for a page name: "root", "admin" or "notfound".
func Template(name string) (string, error) {
	switch name {
	case "root":
		return rootTemplate, nil
	case "admin":
		return adminTemplate, nil
	case "notfound":
		return notFoundTemplate, nil
	default:
		return "", fmt.Errorf("unknown page: %s (use root, admin or notfound)", name)
	}
}
