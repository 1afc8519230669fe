// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestGenerateIsDeterministic(t *testing.T) {
	first := Generate(12345678)
	second := Generate(12345678)
	if !reflect.DeepEqual(first, second) {
		t.Error("two generations for the same account differ")
	}

	other := Generate(87654321)
	if first.IMEI == other.IMEI && first.AndroidID == other.AndroidID {
		t.Error("different accounts generated the same identity")
	}
}

func TestGenerateFieldShapes(t *testing.T) {
	identity := Generate(12345678)

	if len(identity.IMEI) != 15 {
		t.Errorf("IMEI length = %d, want 15", len(identity.IMEI))
	}
	// Luhn check over all 15 digits must come out to zero.
	sum := 0
	for i := 0; i < 15; i++ {
		digit := int(identity.IMEI[i] - '0')
		if (15-1-i)%2 == 1 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	if sum%10 != 0 {
		t.Errorf("IMEI %s fails the Luhn check", identity.IMEI)
	}

	if len(identity.IPAddress) != 4 {
		t.Errorf("IPAddress length = %d, want 4", len(identity.IPAddress))
	}
	if len(identity.IMSIMD5) != 16 {
		t.Errorf("IMSIMD5 length = %d, want 16", len(identity.IMSIMD5))
	}
	if identity.MACAddress != identity.WiFiBSSID {
		t.Error("WiFiBSSID should mirror MACAddress")
	}
	if identity.Version.SDK == 0 || identity.Version.Release == "" {
		t.Errorf("OS version sub-record not populated: %+v", identity.Version)
	}
}

func TestDumpParseRoundTrip(t *testing.T) {
	original := Generate(12345678)
	dumped, err := Dump(original)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	// Round-trip against an unrelated fallback: every field must come
	// from the document, not the fallback.
	parsed, err := Parse(dumped, Generate(99999999))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(original, parsed) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, original)
	}
}

// legacyDocument encodes an identity in the version-1 schema: fields
// at the top level, strings as arrays of byte values, MD5 as a byte
// array.
func legacyDocument(t *testing.T, identity Identity) []byte {
	t.Helper()
	byteArray := func(s []byte) []int {
		out := make([]int, len(s))
		for i, b := range s {
			out[i] = int(b)
		}
		return out
	}

	document := map[string]any{
		"display":     byteArray([]byte(identity.Display)),
		"product":     byteArray([]byte(identity.Product)),
		"device":      identity.Device, // v1 also allowed plain strings
		"board":       identity.Board,
		"model":       identity.Model,
		"fingerprint": byteArray([]byte(identity.Fingerprint)),
		"bootId":      identity.BootID,
		"procVersion": identity.ProcVersion,
		"imei":        identity.IMEI,
		"brand":       identity.Brand,
		"bootloader":  identity.Bootloader,
		"baseBand":    identity.BaseBand,
		"version": map[string]any{
			"incremental": identity.Version.Incremental,
			"release":     identity.Version.Release,
			"codename":    identity.Version.Codename,
			"sdk":         identity.Version.SDK,
		},
		"simInfo":      identity.SIMInfo,
		"osType":       identity.OSType,
		"macAddress":   identity.MACAddress,
		"ipAddress":    byteArray(identity.IPAddress),
		"wifiBSSID":    identity.WiFiBSSID,
		"wifiSSID":     identity.WiFiSSID,
		"imsiMd5":      byteArray(identity.IMSIMD5),
		"androidId":    identity.AndroidID,
		"apn":          identity.APN,
		"vendorName":   identity.VendorName,
		"vendorOsName": identity.VendorOSName,
	}
	data, err := json.Marshal(document)
	if err != nil {
		t.Fatalf("building legacy document: %v", err)
	}
	return data
}

func TestParseLegacySchema(t *testing.T) {
	original := Generate(12345678)
	legacy := legacyDocument(t, original)

	parsed, err := Parse(legacy, Generate(99999999))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(original, parsed) {
		t.Errorf("legacy decode mismatch:\n got %+v\nwant %+v", parsed, original)
	}
}

func TestParseMissingFieldsFallBack(t *testing.T) {
	fallback := Generate(12345678)
	parsed, err := Parse([]byte(`{"deviceInfoVersion": 2, "data": {"model": "handset"}}`), fallback)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Model != "handset" {
		t.Errorf("Model = %q, want the document's value", parsed.Model)
	}
	if parsed.IMEI != fallback.IMEI {
		t.Errorf("IMEI = %q, want the fallback's %q", parsed.IMEI, fallback.IMEI)
	}
	if parsed.Version != fallback.Version {
		t.Errorf("Version = %+v, want the fallback's %+v", parsed.Version, fallback.Version)
	}
}

func TestParseMalformedFieldIsError(t *testing.T) {
	var schemaErr *SchemaError
	_, err := Parse([]byte(`{"deviceInfoVersion": 2, "data": {"imei": 42}}`), Generate(1))
	if !errors.As(err, &schemaErr) {
		t.Errorf("Parse error = %v, want a SchemaError", err)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	for _, document := range []string{
		`{"deviceInfoVersion": 3, "data": {}}`,
		`{"deviceInfoVersion": "two", "data": {}}`,
		`{"deviceInfoVersion": 1.5}`,
	} {
		var versionErr *UnsupportedVersionError
		_, err := Parse([]byte(document), Generate(1))
		if !errors.As(err, &versionErr) {
			t.Errorf("Parse(%s) error = %v, want UnsupportedVersionError", document, err)
		}
	}
}

func TestParseToleratesComments(t *testing.T) {
	document := `{
		// pinned after the 2026-01 device wipe
		"deviceInfoVersion": 2,
		"data": {
			"model": "handset",
		},
	}`
	parsed, err := Parse([]byte(document), Generate(1))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Model != "handset" {
		t.Errorf("Model = %q, want handset", parsed.Model)
	}
}

func TestStoreGeneratesAndPersists(t *testing.T) {
	directory := t.TempDir()
	store := NewStore(directory, nil)

	first, err := store.Load(12345678)
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(directory, FileName)); err != nil {
		t.Fatalf("device.json was not written: %v", err)
	}

	second, err := store.Load(12345678)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("persisted identity does not round-trip through Load")
	}
}

func TestStorePreservesOperatorEdits(t *testing.T) {
	directory := t.TempDir()
	store := NewStore(directory, nil)
	if _, err := store.Load(12345678); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Hand-edit one field; the rest of the file stays as generated.
	path := filepath.Join(directory, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading device.json: %v", err)
	}
	edited := strings.Replace(string(data), `"silkworm"`, `"handset"`, 1)
	if err := os.WriteFile(path, []byte(edited), 0600); err != nil {
		t.Fatalf("writing edited device.json: %v", err)
	}

	reloaded, err := store.Load(12345678)
	if err != nil {
		t.Fatalf("Load after edit failed: %v", err)
	}
	found := false
	for _, field := range []string{reloaded.Product, reloaded.Device, reloaded.Board, reloaded.Model} {
		if field == "handset" {
			found = true
		}
	}
	if !found {
		t.Error("operator edit was not honored on reload")
	}
}

func TestStoreCorruptFileIsError(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, FileName)
	if err := os.WriteFile(path, []byte(`{"deviceInfoVersion": 9}`), 0600); err != nil {
		t.Fatalf("writing corrupt device.json: %v", err)
	}

	store := NewStore(directory, nil)
	if _, err := store.Load(12345678); err == nil {
		t.Error("Load of an unsupported schema version succeeded, want error")
	}
}
