// Copyright 2026 The Silkworm Authors
// SPDX-License-Identifier: Apache-2.0

// Package device manages the per-account device identity: the stable
// hardware fingerprint the protocol backend presents to the remote
// service at login. The identity is persisted as device.json in the
// account's data directory and must stay stable across logins, or the
// server treats every session as a new device and re-challenges it.
//
// When no persisted identity exists, one is generated deterministically
// from the account identifier, so repeated fresh logins for the same
// account reproduce the same device even if the data directory is lost.
package device

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Identity is the fixed-shape device record expected by the protocol
// backend. String fields hold display text; IPAddress is 4 raw bytes;
// IMSIMD5 is a raw 16-byte MD5 digest.
type Identity struct {
	Display      string
	Product      string
	Device       string
	Board        string
	Model        string
	Fingerprint  string
	BootID       string
	ProcVersion  string
	IMEI         string
	Brand        string
	Bootloader   string
	BaseBand     string
	Version      OSVersion
	SIMInfo      string
	OSType       string
	MACAddress   string
	IPAddress    []byte
	WiFiBSSID    string
	WiFiSSID     string
	IMSIMD5      []byte
	AndroidID    string
	APN          string
	VendorName   string
	VendorOSName string
}

// OSVersion is the nested OS-version sub-record.
type OSVersion struct {
	Incremental string
	Release     string
	Codename    string
	SDK         uint32
}

// seedKey is the domain-separation key for the identity-generation
// stream. Fixed constant: changing it changes every account's
// generated device, which would force device-lock re-verification for
// accounts without a persisted device.json. The bytes are the ASCII
// domain name zero-padded to 32, readable in hex dumps.
var seedKey = [32]byte{
	's', 'i', 'l', 'k', 'w', 'o', 'r', 'm', '.', 'd', 'e', 'v', 'i', 'c', 'e', '.',
	's', 'e', 'e', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Generate derives a device identity deterministically from the
// account identifier. The field values come from a keyed BLAKE3 XOF
// over the account number, so the same account always generates the
// same identity.
func Generate(account int64) Identity {
	hasher, err := blake3.NewKeyed(seedKey[:])
	if err != nil {
		panic("device: BLAKE3 keyed hasher initialization failed: " + err.Error())
	}
	var accountBytes [8]byte
	binary.LittleEndian.PutUint64(accountBytes[:], uint64(account))
	hasher.Write(accountBytes[:])
	stream := hasher.Digest()

	macAddress := randomMAC(stream)
	identity := Identity{
		Display:     fmt.Sprintf("SILKWORM.%s.001", randomDigits(stream, 6)),
		Product:     "silkworm",
		Device:      "silkworm",
		Board:       "silkworm",
		Model:       "silkworm",
		Fingerprint: fmt.Sprintf("silkworm/silkworm/silkworm:10/SILKWORM.200122.001/%s:user/release-keys", randomDigits(stream, 7)),
		BootID:      randomUUID(stream),
		ProcVersion: fmt.Sprintf("Linux version 3.0.31-%s (android-build@silkworm.build)", randomHex(stream, 8)),
		IMEI:        randomIMEI(stream),
		Brand:       "Silkworm",
		Bootloader:  "unknown",
		BaseBand:    "",
		Version: OSVersion{
			Incremental: "5891938",
			Release:     "10",
			Codename:    "REL",
			SDK:         29,
		},
		SIMInfo:      "T-Mobile",
		OSType:       "android",
		MACAddress:   macAddress,
		IPAddress:    []byte{10, 0, 1, randomByte(stream)},
		WiFiBSSID:    macAddress,
		WiFiSSID:     "<unknown ssid>",
		IMSIMD5:      randomMD5(stream),
		AndroidID:    randomHex(stream, 16),
		APN:          "wifi",
		VendorName:   "MIUI",
		VendorOSName: "silkworm",
	}
	return identity
}

// streamRead fills buf from the XOF stream. The BLAKE3 digest reader
// never fails.
func streamRead(stream io.Reader, buf []byte) {
	if _, err := io.ReadFull(stream, buf); err != nil {
		panic("device: identity stream read failed: " + err.Error())
	}
}

func randomByte(stream io.Reader) byte {
	var buf [1]byte
	streamRead(stream, buf[:])
	return buf[0]
}

func randomDigits(stream io.Reader, n int) string {
	digits := make([]byte, n)
	streamRead(stream, digits)
	for i := range digits {
		digits[i] = '0' + digits[i]%10
	}
	return string(digits)
}

func randomHex(stream io.Reader, n int) string {
	raw := make([]byte, (n+1)/2)
	streamRead(stream, raw)
	return hex.EncodeToString(raw)[:n]
}

func randomMAC(stream io.Reader) string {
	var raw [6]byte
	streamRead(stream, raw[:])
	// Locally administered, unicast.
	raw[0] = raw[0]&0xfe | 0x02
	parts := make([]string, 6)
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return parts[0] + ":" + parts[1] + ":" + parts[2] + ":" + parts[3] + ":" + parts[4] + ":" + parts[5]
}

func randomUUID(stream io.Reader) string {
	generated, err := uuid.NewRandomFromReader(stream)
	if err != nil {
		panic("device: boot ID generation failed: " + err.Error())
	}
	return generated.String()
}

// randomIMEI produces a 15-digit IMEI: 14 random digits plus a Luhn
// check digit, as real handsets carry.
func randomIMEI(stream io.Reader) string {
	digits := make([]byte, 14)
	streamRead(stream, digits)
	for i := range digits {
		digits[i] = digits[i] % 10
	}

	sum := 0
	for i, d := range digits {
		value := int(d)
		// Luhn doubles every second digit counting from the check
		// digit, which here is every odd index.
		if i%2 == 1 {
			value *= 2
			if value > 9 {
				value -= 9
			}
		}
		sum += value
	}
	check := (10 - sum%10) % 10

	out := make([]byte, 15)
	for i, d := range digits {
		out[i] = '0' + d
	}
	out[14] = '0' + byte(check)
	return string(out)
}

func randomMD5(stream io.Reader) []byte {
	var raw [16]byte
	streamRead(stream, raw[:])
	digest := md5.Sum(raw[:])
	return digest[:]
}
