package pages

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeMetrics struct {
	chipID  string
	core    string
	mhz     float64
	heap    uint64
	failAll bool
}

func (f *fakeMetrics) ChipID(ctx context.Context) (string, error) {
	if f.failAll {
		return "", errors.New("no chip")
	}
	return f.chipID, nil
}

func (f *fakeMetrics) CoreVersion(ctx context.Context) (string, error) {
	if f.failAll {
		return "", errors.New("no core")
	}
	return f.core, nil
}

func (f *fakeMetrics) CPUFrequencyMHz(ctx context.Context) (float64, error) {
	if f.failAll {
		return 0, errors.New("no cpu")
	}
	return f.mhz, nil
}

func (f *fakeMetrics) FreeHeap() uint64 {
	return f.heap
}

var testIdentity = Identity{
	Title:           "Deadspace AP",
	Hostname:        "deadspace001",
	FirmwareVersion: "1.2.0",
}

var knownPlaceholders = []string{
	PlaceholderRootWebTitle,
	PlaceholderHostName,
	PlaceholderFirmwareVersion,
	PlaceholderChipID,
	PlaceholderCoreVersion,
	PlaceholderCPUFreq,
	PlaceholderFreeHeap,
}

func TestRootTemplateUsesEveryPlaceholder(t *testing.T) {
	got := Placeholders(rootTemplate)
	for _, want := range knownPlaceholders {
		found := false
		for _, name := range got {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("root template does not use ${%s}", want)
		}
	}
}

func TestRoot_NoKnownPlaceholdersLeft(t *testing.T) {
	set := New(testIdentity, &fakeMetrics{chipID: "abc123", core: "6.1.0/go1.24", mhz: 1500, heap: 4096})
	body := set.Root(context.Background())

	for _, name := range knownPlaceholders {
		if strings.Contains(body, "${"+name+"}") {
			t.Errorf("rendered root page still contains ${%s}", name)
		}
	}
	for _, want := range []string{"Deadspace AP", "deadspace001", "1.2.0", "abc123", "6.1.0/go1.24", "1500 MHz", "4096 bytes"} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered root page missing %q", want)
		}
	}
}

func TestRoot_StaticVsDynamic(t *testing.T) {
	metrics := &fakeMetrics{chipID: "abc", core: "k", mhz: 240, heap: 1000}
	set := New(testIdentity, metrics)
	ctx := context.Background()

	first := set.RootValues(ctx)
	firstHeap := first[PlaceholderFreeHeap]()
	firstHost := first[PlaceholderHostName]()
	firstFW := first[PlaceholderFirmwareVersion]()

	metrics.heap = 2000

	second := set.RootValues(ctx)
	if got := second[PlaceholderFreeHeap](); got == firstHeap {
		t.Errorf("freeHeap should change between renders, both %q", got)
	}
	if got := second[PlaceholderHostName](); got != firstHost {
		t.Errorf("hostName changed: %q -> %q", firstHost, got)
	}
	if got := second[PlaceholderFirmwareVersion](); got != firstFW {
		t.Errorf("firmwareVersion changed: %q -> %q", firstFW, got)
	}

	if !strings.Contains(set.Root(ctx), "2000 bytes") {
		t.Error("second render should show the new heap value")
	}
}

func TestRoot_MetricFailuresRenderUnknown(t *testing.T) {
	set := New(testIdentity, &fakeMetrics{failAll: true, heap: 1})
	values := set.RootValues(context.Background())

	for _, name := range []string{PlaceholderChipID, PlaceholderCoreVersion, PlaceholderCPUFreq} {
		if got := values[name](); got != Unknown {
			t.Errorf("%s = %q, want %q", name, got, Unknown)
		}
	}
}

func TestAdminAndNotFound(t *testing.T) {
	set := New(testIdentity, &fakeMetrics{})

	admin := set.Admin()
	if !strings.Contains(admin, `type="password"`) {
		t.Error("admin page should be the login form")
	}
	if strings.Contains(admin, "${") {
		t.Error("admin page should have no placeholders left")
	}

	if !strings.Contains(set.NotFound(), "404") {
		t.Error("not-found page should mention 404")
	}
}

func TestStaticValuesEscaped(t *testing.T) {
	set := New(Identity{Title: "<b>AP</b>", Hostname: "h", FirmwareVersion: "v"}, &fakeMetrics{})
	body := set.Admin()
	if strings.Contains(body, "<b>AP</b>") {
		t.Error("title should be HTML-escaped")
	}
	if !strings.Contains(body, "&lt;b&gt;AP&lt;/b&gt;") {
		t.Error("escaped title missing")
	}
}

func TestTemplate(t *testing.T) {
	for _, name := range []string{"root", "admin", "notfound"} {
		if tmpl, err := Template(name); err != nil || tmpl == "" {
			t.Errorf("Template(%q) = %d bytes, %v", name, len(tmpl), err)
		}
	}
	if _, err := Template("other"); err == nil {
		t.Error("expected error for unknown page")
	}
}
