// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
)

// Two on-disk schema versions exist, distinguished by the top-level
// deviceInfoVersion field (absent means 1):
//
//   - Version 1 (legacy): fields at the top level; strings stored
//     either as JSON strings or as arrays of byte values; byte fields
//     as arrays of byte values.
//   - Version 2 (current): fields nested under a "data" object;
//     strings stored plainly; byte fields hex-encoded. Dump always
//     writes this version.
//
// Both versions are accepted on read. Any other version is a hard
// parse error: an unrecognized future schema must not be silently
// reinterpreted as a device change.

type schemaVersion int

const (
	schemaV1 schemaVersion = 1
	schemaV2 schemaVersion = 2
)

// SchemaError reports a field present in device.json with the wrong
// shape for its schema version. Missing fields are not errors (they
// fall back), but a present, malformed field is corruption.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("device: field %q: %s", e.Field, e.Message)
}

// UnsupportedVersionError reports a deviceInfoVersion this code does
// not understand.
type UnsupportedVersionError struct {
	Version int64
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("device: unsupported deviceInfoVersion %d", e.Version)
}

// Parse decodes device.json. Fields that are absent fall back,
// field-by-field, to the corresponding field of fallback, so a partially
// written or hand-trimmed file never fails the whole load. Operators
// hand-edit this file, so JSONC comments and trailing commas are
// tolerated.
func Parse(data []byte, fallback Identity) (Identity, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return Identity{}, fmt.Errorf("device: parsing device.json: %w", err)
	}

	switch version := documentVersion(document); version {
	case 1:
		return parseFields(document, schemaV1, fallback)
	case 2:
		inner, ok := document["data"].(map[string]any)
		if !ok {
			return Identity{}, &SchemaError{Field: "data", Message: "missing or not an object"}
		}
		return parseFields(inner, schemaV2, fallback)
	default:
		return Identity{}, &UnsupportedVersionError{Version: version}
	}
}

// documentVersion reads deviceInfoVersion. Absent means the legacy
// version 1; a non-integer value means an unrecognizable version and
// is reported as -1 so it fails the version switch.
func documentVersion(document map[string]any) int64 {
	raw, ok := document["deviceInfoVersion"]
	if !ok {
		return 1
	}
	number, ok := raw.(json.Number)
	if !ok {
		return -1
	}
	version, err := number.Int64()
	if err != nil {
		return -1
	}
	return version
}

func parseFields(obj map[string]any, version schemaVersion, fallback Identity) (Identity, error) {
	var identity Identity
	var err error

	stringFields := []struct {
		key      string
		target   *string
		fallback string
	}{
		{"display", &identity.Display, fallback.Display},
		{"product", &identity.Product, fallback.Product},
		{"device", &identity.Device, fallback.Device},
		{"board", &identity.Board, fallback.Board},
		{"model", &identity.Model, fallback.Model},
		{"fingerprint", &identity.Fingerprint, fallback.Fingerprint},
		{"bootId", &identity.BootID, fallback.BootID},
		{"procVersion", &identity.ProcVersion, fallback.ProcVersion},
		{"imei", &identity.IMEI, fallback.IMEI},
		{"brand", &identity.Brand, fallback.Brand},
		{"bootloader", &identity.Bootloader, fallback.Bootloader},
		{"baseBand", &identity.BaseBand, fallback.BaseBand},
		{"simInfo", &identity.SIMInfo, fallback.SIMInfo},
		{"osType", &identity.OSType, fallback.OSType},
		{"macAddress", &identity.MACAddress, fallback.MACAddress},
		{"wifiBSSID", &identity.WiFiBSSID, fallback.WiFiBSSID},
		{"wifiSSID", &identity.WiFiSSID, fallback.WiFiSSID},
		{"androidId", &identity.AndroidID, fallback.AndroidID},
		{"apn", &identity.APN, fallback.APN},
		{"vendorName", &identity.VendorName, fallback.VendorName},
		{"vendorOsName", &identity.VendorOSName, fallback.VendorOSName},
	}
	for _, field := range stringFields {
		if *field.target, err = parseString(obj, field.key, version, field.fallback); err != nil {
			return Identity{}, err
		}
	}

	if identity.IPAddress, err = parseBytes(obj, "ipAddress", version, fallback.IPAddress); err != nil {
		return Identity{}, err
	}
	if identity.IMSIMD5, err = parseBytes(obj, "imsiMd5", version, fallback.IMSIMD5); err != nil {
		return Identity{}, err
	}
	if identity.Version, err = parseOSVersion(obj, "version", version, fallback.Version); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func parseString(obj map[string]any, key string, version schemaVersion, fallback string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return fallback, nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	// Version 1 also stored strings as arrays of byte values.
	if version == schemaV1 {
		if array, ok := raw.([]any); ok {
			decoded, err := decodeByteArray(key, array)
			if err != nil {
				return "", err
			}
			if !utf8.Valid(decoded) {
				return "", &SchemaError{Field: key, Message: "byte array is not valid UTF-8"}
			}
			return string(decoded), nil
		}
	}
	return "", &SchemaError{Field: key, Message: "not a string"}
}

func parseBytes(obj map[string]any, key string, version schemaVersion, fallback []byte) ([]byte, error) {
	raw, ok := obj[key]
	if !ok {
		return fallback, nil
	}
	switch version {
	case schemaV1:
		array, ok := raw.([]any)
		if !ok {
			return nil, &SchemaError{Field: key, Message: "not a byte array"}
		}
		return decodeByteArray(key, array)
	default:
		encoded, ok := raw.(string)
		if !ok {
			return nil, &SchemaError{Field: key, Message: "not a hex string"}
		}
		decoded, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, &SchemaError{Field: key, Message: "invalid hex: " + err.Error()}
		}
		return decoded, nil
	}
}

func parseUint32(obj map[string]any, key string, fallback uint32) (uint32, error) {
	raw, ok := obj[key]
	if !ok {
		return fallback, nil
	}
	number, ok := raw.(json.Number)
	if !ok {
		return 0, &SchemaError{Field: key, Message: "not a number"}
	}
	value, err := number.Int64()
	if err != nil || value < 0 || value > int64(^uint32(0)) {
		return 0, &SchemaError{Field: key, Message: "not a uint32"}
	}
	return uint32(value), nil
}

func parseOSVersion(obj map[string]any, key string, version schemaVersion, fallback OSVersion) (OSVersion, error) {
	raw, ok := obj[key]
	if !ok {
		return fallback, nil
	}
	sub, ok := raw.(map[string]any)
	if !ok {
		return OSVersion{}, &SchemaError{Field: key, Message: "not an object"}
	}

	var result OSVersion
	var err error
	if result.Incremental, err = parseString(sub, "incremental", version, fallback.Incremental); err != nil {
		return OSVersion{}, err
	}
	if result.Release, err = parseString(sub, "release", version, fallback.Release); err != nil {
		return OSVersion{}, err
	}
	if result.Codename, err = parseString(sub, "codename", version, fallback.Codename); err != nil {
		return OSVersion{}, err
	}
	if result.SDK, err = parseUint32(sub, "sdk", fallback.SDK); err != nil {
		return OSVersion{}, err
	}
	return result, nil
}

func decodeByteArray(key string, array []any) ([]byte, error) {
	decoded := make([]byte, len(array))
	for i, element := range array {
		number, ok := element.(json.Number)
		if !ok {
			return nil, &SchemaError{Field: key, Message: "byte array element is not a number"}
		}
		value, err := number.Int64()
		if err != nil {
			return nil, &SchemaError{Field: key, Message: "byte array element is not an integer"}
		}
		// Legacy writers stored signed bytes; keep the low 8 bits.
		decoded[i] = byte(value)
	}
	return decoded, nil
}

// Dump serializes an identity in the current (version 2) schema.
func Dump(identity Identity) ([]byte, error) {
	document := map[string]any{
		"deviceInfoVersion": 2,
		"data": map[string]any{
			"display":      identity.Display,
			"product":      identity.Product,
			"device":       identity.Device,
			"board":        identity.Board,
			"model":        identity.Model,
			"fingerprint":  identity.Fingerprint,
			"bootId":       identity.BootID,
			"procVersion":  identity.ProcVersion,
			"imei":         identity.IMEI,
			"brand":        identity.Brand,
			"bootloader":   identity.Bootloader,
			"baseBand":     identity.BaseBand,
			"version": map[string]any{
				"incremental": identity.Version.Incremental,
				"release":     identity.Version.Release,
				"codename":    identity.Version.Codename,
				"sdk":         identity.Version.SDK,
			},
			"simInfo":      identity.SIMInfo,
			"osType":       identity.OSType,
			"macAddress":   identity.MACAddress,
			"ipAddress":    hex.EncodeToString(identity.IPAddress),
			"wifiBSSID":    identity.WiFiBSSID,
			"wifiSSID":     identity.WiFiSSID,
			"imsiMd5":      hex.EncodeToString(identity.IMSIMD5),
			"androidId":    identity.AndroidID,
			"apn":          identity.APN,
			"vendorName":   identity.VendorName,
			"vendorOsName": identity.VendorOSName,
		},
	}
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("device: serializing device.json: %w", err)
	}
	return append(data, '\n'), nil
}
