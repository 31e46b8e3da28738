package parser

import (
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

func testOptions() Options {
	return Options{
		UploadID: "upl-1",
		UserID:   "user-1",
		Fallback: civil.Date{Year: 2024, Month: time.June, Day: 11},
	}
}

func TestParseDelimitedSingleAmountColumn(t *testing.T) {
	content := []byte("03/15/2024,Grocery Store,-54.23\n")

	res, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Transactions) != 1 || res.Skipped != 0 {
		t.Fatalf("got %d transactions %d skipped, want 1 and 0", len(res.Transactions), res.Skipped)
	}

	tx := res.Transactions[0]
	if tx.Date.String() != "2024-03-15" {
		t.Errorf("date = %s, want 2024-03-15", tx.Date)
	}
	if tx.Description != "Grocery Store" {
		t.Errorf("description = %q, want %q", tx.Description, "Grocery Store")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("54.23")) {
		t.Errorf("amount = %s, want 54.23", tx.Amount)
	}
	if tx.Direction != domain.Outflow {
		t.Errorf("direction = %s, want outflow", tx.Direction)
	}
	if tx.UploadID != "upl-1" || tx.UserID != "user-1" {
		t.Errorf("upload/user = %s/%s, want upl-1/user-1", tx.UploadID, tx.UserID)
	}
	if tx.MonthKey() != "2024-03" {
		t.Errorf("month key = %s, want 2024-03", tx.MonthKey())
	}
}

func TestParseDelimitedSplitColumns(t *testing.T) {
	content := []byte(
		"Date,Description,Withdrawal,Deposit\n" +
			"04/01/2024,Paycheck,,2500.00\n" +
			"04/02/2024,Rent,1500.00,\n" +
			"04/03/2024,Nothing,,\n")

	res, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(res.Transactions))
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (the empty split row)", res.Skipped)
	}

	paycheck := res.Transactions[0]
	if paycheck.Direction != domain.Inflow || !paycheck.Amount.Equal(decimal.RequireFromString("2500.00")) {
		t.Errorf("paycheck = %s %s, want inflow 2500.00", paycheck.Direction, paycheck.Amount)
	}

	rent := res.Transactions[1]
	if rent.Direction != domain.Outflow || !rent.Amount.Equal(decimal.RequireFromString("1500.00")) {
		t.Errorf("rent = %s %s, want outflow 1500.00", rent.Direction, rent.Amount)
	}
}

func TestParseDelimitedSkipsBadRows(t *testing.T) {
	content := []byte(
		"Date,Description,Amount\n" +
			"03/15/2024,Coffee,-4.50\n" +
			"too,short\n" +
			"03/16/2024,,12.00\n" +
			"03/17/2024,Gym,notanumber\n" +
			"\n" +
			"03/18/2024,Zero Fee,0.00\n" +
			"03/19/2024,Bookstore,-20.00\n")

	res, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(res.Transactions))
	}
	if res.Skipped != 4 {
		t.Errorf("skipped = %d, want 4 (short row, blank description, bad amount, zero amount)", res.Skipped)
	}
}

func TestParseDelimitedQuotedDescription(t *testing.T) {
	content := []byte(
		"Date,Description,Amount\n" +
			`04/06/2024,"Smith, Jones & Co",45.00` + "\n" +
			`04/07/2024,"He said ""thanks""",-9.99` + "\n")

	res, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2 (skipped %d)", len(res.Transactions), res.Skipped)
	}
	if got := res.Transactions[0].Description; got != "Smith, Jones & Co" {
		t.Errorf("description = %q, want %q", got, "Smith, Jones & Co")
	}
	if got := res.Transactions[1].Description; got != `He said "thanks"` {
		t.Errorf("description = %q, want %q", got, `He said "thanks"`)
	}
}

func TestParseDelimitedDateFallback(t *testing.T) {
	content := []byte("N/A,Mystery Purchase,9.99\n")

	res, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(res.Transactions))
	}

	tx := res.Transactions[0]
	if tx.Date.String() != "2024-06-11" {
		t.Errorf("date = %s, want the fallback 2024-06-11", tx.Date)
	}
	if !tx.DateInferred {
		t.Error("DateInferred = false, want true for a fallback date")
	}
}

func TestParseDelimitedTabAndWhitespace(t *testing.T) {
	tsv := []byte("Date\tDescription\tAmount\n03/15/2024\tCoffee Shop\t-4.50\n")
	res, err := Parse(tsv, "statement.tsv", testOptions())
	if err != nil {
		t.Fatalf("Parse tsv: %v", err)
	}
	if len(res.Transactions) != 1 || res.Transactions[0].Description != "Coffee Shop" {
		t.Fatalf("tsv parse failed: %+v", res)
	}

	txt := []byte("03/15/2024 COFFEE 4.50\n")
	res, err = Parse(txt, "statement.txt", testOptions())
	if err != nil {
		t.Fatalf("Parse txt: %v", err)
	}
	if len(res.Transactions) != 1 || res.Transactions[0].Description != "COFFEE" {
		t.Fatalf("whitespace parse failed: %+v", res)
	}
}

func TestParseDelimitedCRLF(t *testing.T) {
	content := []byte("Date,Description,Amount\r\n03/15/2024,Deli Lunch,-12.75\r\n")

	res, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(res.Transactions))
	}
	if got := res.Transactions[0].Description; got != "Deli Lunch" {
		t.Errorf("description = %q, want %q", got, "Deli Lunch")
	}
}

func TestParseDelimitedIdempotent(t *testing.T) {
	content := []byte(
		"Date,Description,Amount\n" +
			"03/15/2024,Coffee,-4.50\n" +
			"bad row here\n" +
			"03/16/2024,Books,-20.00\n")

	first, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	second, err := Parse(content, "statement.csv", testOptions())
	if err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("parsing the same bytes twice produced different results")
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	opts := testOptions()

	if _, err := Parse([]byte{0xff, 0xfe, 0xfd}, "junk.csv", opts); err == nil {
		t.Error("expected error for non-text bytes")
	}
	if _, err := Parse([]byte("\n \n\t\n"), "empty.csv", opts); err == nil {
		t.Error("expected error for a file with no rows")
	}
	if _, err := Parse([]byte("anything"), "photo.jpg", opts); err == nil {
		t.Error("expected error for an unsupported extension")
	}
}
