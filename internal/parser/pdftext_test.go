package parser

import (
	"strings"
	"testing"
)

// markerPDF builds a minimal uncompressed PDF-shaped buffer whose content
// stream shows each given line inside its own BT/ET region. The library
// reader cannot parse it (no xref table), which is exactly what pushes
// extraction onto the marker scan.
func markerPDF(lines ...string) []byte {
	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n1 0 obj\n<< /Length 120 >>\nstream\n")
	for _, ln := range lines {
		sb.WriteString("BT /F1 12 Tf ")
		sb.WriteString(ln)
		sb.WriteString(" ET\n")
	}
	sb.WriteString("endstream\nendobj\n%%EOF\n")
	return []byte(sb.String())
}

func TestExtractTextMarkers(t *testing.T) {
	data := markerPDF(
		"(03/15/2024) Tj (GROCERY STORE) Tj (54.23 DR) Tj",
		"(04/01/2024) Tj (PAYCHECK) Tj (2500.00 CR) Tj",
	)

	text, source, err := ExtractText(data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if source != TextSourceMarkers {
		t.Fatalf("source = %s, want markers", source)
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), text)
	}
	if lines[0] != "03/15/2024 GROCERY STORE 54.23 DR" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "04/01/2024 PAYCHECK 2500.00 CR" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestExtractTextMarkersEscapesAndHex(t *testing.T) {
	data := markerPDF(
		`(05/02/2024) Tj (DELI \(DOWNTOWN\)) Tj (12.50) Tj`,
		"<30362F30312F32303234> Tj <52454E54> Tj <313030302E3030> Tj",
		"<00520045004E0054> Tj",
	)

	text, source, err := ExtractText(data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if source != TextSourceMarkers {
		t.Fatalf("source = %s, want markers", source)
	}
	if !strings.Contains(text, "DELI (DOWNTOWN)") {
		t.Errorf("escaped parens not decoded: %q", text)
	}
	if !strings.Contains(text, "06/01/2024 RENT 1000.00") {
		t.Errorf("hex literals not decoded: %q", text)
	}
	// UTF-16BE encoded ASCII: NULs dropped, letters kept.
	if !strings.Contains(text, "RENT") {
		t.Errorf("two-byte hex text not recovered: %q", text)
	}
}

func TestExtractTextByteWindows(t *testing.T) {
	var raw []byte
	raw = append(raw, 0x01, 0x02, 0x03)
	raw = append(raw, []byte("garbage 05/02/2024")...)
	raw = append(raw, 0x00)
	raw = append(raw, []byte("NETFLIX.COM")...)
	raw = append(raw, 0x07)
	raw = append(raw, []byte("$19.99 tail")...)
	raw = append(raw, 0xfe, 0xff)

	text, source, err := ExtractText(raw)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if source != TextSourceByteScan {
		t.Fatalf("source = %s, want bytescan", source)
	}
	line := strings.TrimSpace(text)
	for _, want := range []string{"05/02/2024", "NETFLIX.COM", "$19.99"} {
		if !strings.Contains(line, want) {
			t.Errorf("synthetic line %q missing %q", line, want)
		}
	}
}

func TestExtractTextByteWindowsRespectsGap(t *testing.T) {
	// Amount sits far beyond the pairing distance from the date.
	raw := []byte("01/01/2024" + strings.Repeat(".", byteWindowMaxGap+40) + "$5.00")

	if _, _, err := ExtractText(raw); err == nil {
		t.Error("expected no text when the only amount is out of range")
	}
}

func TestExtractTextNothingRecoverable(t *testing.T) {
	_, source, err := ExtractText([]byte("opaque binary without any markers"))
	if err == nil {
		t.Fatal("expected an error for unrecoverable bytes")
	}
	if source != TextSourceNone {
		t.Errorf("source = %s, want none", source)
	}
}
