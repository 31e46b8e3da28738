package parser

import (
	"reflect"
	"testing"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		line string
		want delimiter
	}{
		{"comma", "Date,Description,Amount", delimComma},
		{"tab wins over comma", "Date\tDescription,Notes\tAmount", delimTab},
		{"spaces only", "Date Description Amount", delimWhitespace},
		{"no separators at all", "DateDescriptionAmount", delimWhitespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectDelimiter(tt.line); got != tt.want {
				t.Errorf("detectDelimiter(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		d             delimiter
		respectQuotes bool
		want          []string
	}{
		{"plain comma", "a,b,c", delimComma, true, []string{"a", "b", "c"}},
		{"comma inside quotes", `a,"b,c",d`, delimComma, true, []string{"a", "b,c", "d"}},
		{"doubled quotes unescape", `"say ""hi""",x`, delimComma, true, []string{`say "hi"`, "x"}},
		{"quotes ignored without flag", `a,"b,c"`, delimComma, false, []string{"a", `"b`, `c"`}},
		{"tab", "a\tb\tc", delimTab, true, []string{"a", "b", "c"}},
		{"whitespace collapses runs", "a   b\tc", delimWhitespace, true, []string{"a", "b", "c"}},
		{"fields are trimmed", " a , b ,c ", delimComma, true, []string{"a", "b", "c"}},
		{"trailing empty field kept", "a,b,", delimComma, true, []string{"a", "b", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitFields(tt.line, tt.d, tt.respectQuotes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitFields(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ColumnMapping
	}{
		{
			name: "standard header",
			line: "Date,Description,Amount",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, WithdrawalCol: -1, DepositCol: -1, HasHeader: true, delim: delimComma},
		},
		{
			name: "split columns",
			line: "Date,Description,Withdrawal,Deposit",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: -1, WithdrawalCol: 2, DepositCol: 3, IsSplit: true, HasHeader: true, delim: delimComma},
		},
		{
			name: "debit and credit alias the split pair",
			line: "Transaction Date,Payee,Debit,Credit",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: -1, WithdrawalCol: 2, DepositCol: 3, IsSplit: true, HasHeader: true, delim: delimComma},
		},
		{
			name: "tab header with spaced aliases",
			line: "Date\tDetails\tPaid Out\tPaid In",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: -1, WithdrawalCol: 2, DepositCol: 3, IsSplit: true, HasHeader: true, delim: delimTab},
		},
		{
			name: "quoted header tokens",
			line: `"Posting Date","Merchant Name","Amount"`,
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, WithdrawalCol: -1, DepositCol: -1, HasHeader: true, delim: delimComma},
		},
		{
			name: "reordered columns",
			line: "Amount,Date,Description",
			want: ColumnMapping{DateCol: 1, DescCol: 2, AmountCol: 0, WithdrawalCol: -1, DepositCol: -1, HasHeader: true, delim: delimComma},
		},
		{
			name: "withdrawal alone does not activate split mode",
			line: "Date,Description,Withdrawal",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, WithdrawalCol: -1, DepositCol: -1, HasHeader: true, delim: delimComma},
		},
		{
			name: "partially recognized header keeps defaults elsewhere",
			line: "Txn Day,Info,Total",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, WithdrawalCol: -1, DepositCol: -1, HasHeader: true, delim: delimComma},
		},
		{
			name: "data line is not a header",
			line: "03/15/2024,Grocery Store,-54.23",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, WithdrawalCol: -1, DepositCol: -1, delim: delimComma},
		},
		{
			name: "whitespace data line",
			line: "03/15/2024 COFFEE 4.50",
			want: ColumnMapping{DateCol: 0, DescCol: 1, AmountCol: 2, WithdrawalCol: -1, DepositCol: -1, delim: delimWhitespace},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveColumns(tt.line)
			if got != tt.want {
				t.Errorf("ResolveColumns(%q)\n got %+v\nwant %+v", tt.line, got, tt.want)
			}
		})
	}
}
