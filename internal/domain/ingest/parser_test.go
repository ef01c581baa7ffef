package ingest

import (
	"strings"
	"testing"
	"time"
)

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1.500,00", 150000, false},
		{"1500,00", 150000, false},
		{"2.000,50", 200050, false},
		{"0,01", 1, false},
		{"-1.234,56", -123456, false},
		{"$ 3.000,00", 300000, false},
		{"100", 10000, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got, err := ParseAmountCents(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAmountCents(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmountCents(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAmountCents(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseAccountID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"30111222", 30111222, false},
		{"0030111222", 30111222, false},
		{"30.111.222", 30111222, false},
		{"0", 0, false},
		{"sin dato", 0, true},
	}
	for _, c := range cases {
		got, err := ParseAccountID(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAccountID(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAccountID(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAccountID(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseDayFirstTime(t *testing.T) {
	got, err := ParseDayFirstTime("15/07/2025 10:22:00")
	if err != nil {
		t.Fatalf("ParseDayFirstTime failed: %v", err)
	}
	want := time.Date(2025, 7, 15, 10, 22, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := ParseDayFirstTime("07/15/2025"); err == nil {
		t.Error("expected error for month-first date")
	}
	if _, err := ParseDayFirstTime(""); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestParse(t *testing.T) {
	result := Parse("julio.csv", []byte(sampleExport))
	if result.Status != StatusParsed {
		t.Fatalf("expected StatusParsed, got %v (%v)", result.Status, result.Err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}

	first := result.Records[0]
	if first.ID != "1001" {
		t.Errorf("expected id 1001, got %q", first.ID)
	}
	if first.AccountID != 30111222 {
		t.Errorf("expected account 30111222, got %d", first.AccountID)
	}
	if first.AmountCents != 150000 {
		t.Errorf("expected 150000 cents, got %d", first.AmountCents)
	}
	if first.Day() != "2025-07-15" {
		t.Errorf("expected day 2025-07-15, got %q", first.Day())
	}
	if first.MovementLabel != "Jugada - Tombola" {
		t.Errorf("unexpected label %q", first.MovementLabel)
	}
}

func TestParse_NoHeaderIsSkip(t *testing.T) {
	result := Parse("banner.csv", []byte("no table here\nat all\n"))
	if result.Status != StatusSkipped {
		t.Fatalf("expected StatusSkipped, got %v", result.Status)
	}
	if result.Reason == "" {
		t.Error("expected a skip reason")
	}
}

func TestParse_BadAmountFailsFile(t *testing.T) {
	data := strings.Join([]string{
		"Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Importe",
		"1;01/08/2025;Jugada;123;Jugada - Tombola;100,00",
		"2;01/08/2025;Jugada;123;Jugada - Tombola;no-es-numero",
	}, "\n")
	result := Parse("roto.csv", []byte(data))
	if result.Status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %v", result.Status)
	}
	if result.Err == nil || !strings.Contains(result.Err.Error(), "line 3") {
		t.Errorf("expected error referencing line 3, got %v", result.Err)
	}
	if len(result.Records) != 0 {
		t.Errorf("failed file must contribute no records, got %d", len(result.Records))
	}
}

func TestParse_UnparseableDateKept(t *testing.T) {
	data := strings.Join([]string{
		"Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Importe",
		"1;fecha misteriosa;Jugada;123;Jugada - Tombola;100,00",
	}, "\n")
	result := Parse("fechas.csv", []byte(data))
	if result.Status != StatusParsed {
		t.Fatalf("expected StatusParsed, got %v (%v)", result.Status, result.Err)
	}
	if !result.Records[0].Timestamp.IsZero() {
		t.Errorf("expected zero timestamp, got %v", result.Records[0].Timestamp)
	}
	if result.Records[0].Day() != "" {
		t.Errorf("expected empty day, got %q", result.Records[0].Day())
	}
}

func TestParse_MissingColumn(t *testing.T) {
	data := strings.Join([]string{
		// Amount column missing; padded so the delimiter count still
		// looks like a full table.
		"Nro. Transacción;Fecha;Tipo Mov.;Documento;Movimiento;Extra",
		"1;01/08/2025;Jugada;123;Jugada - Tombola;x",
	}, "\n")
	result := Parse("incompleto.csv", []byte(data))
	if result.Status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %v", result.Status)
	}
}
