package report_test

import (
	"testing"

	"github.com/relstore/xschema/report"
	"github.com/relstore/xschema/xtypes"
)

func TestFromIssuesGroupsByDocumentURI(t *testing.T) {
	issues := xtypes.Issues{
		{DocumentURI: "a.json", SchemaID: "widget.schema.json", Path: "/id", Code: xtypes.CodeMissingMember, Message: "missing id"},
		{DocumentURI: "b.json", SchemaID: "widget.schema.json", Path: "/id", Code: xtypes.CodeMissingMember, Message: "missing id"},
		{DocumentURI: "a.json", SchemaID: "widget.schema.json", Path: "/name", Code: xtypes.CodeStandardValidationError, Message: "wrong type"},
	}

	r := report.FromIssues(issues)
	if len(r.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(r.Documents))
	}
	if r.Documents[0].DocumentURI != "a.json" || len(r.Documents[0].Errors) != 2 {
		t.Fatalf("unexpected first document: %#v", r.Documents[0])
	}
	if r.Documents[1].DocumentURI != "b.json" || len(r.Documents[1].Errors) != 1 {
		t.Fatalf("unexpected second document: %#v", r.Documents[1])
	}
}

func TestFromIssuesCarriesReferencedDetail(t *testing.T) {
	issues := xtypes.Issues{
		{
			DocumentURI: "a.json",
			SchemaID:    "order.schema.json",
			Path:        "/customer_id",
			Code:        xtypes.CodeDanglingForeignKey,
			Message:     "no matching primary key",
			Referenced: &xtypes.Referenced{
				SchemaID: "customer.schema.json",
				Tuple:    xtypes.NewKeyTuple([]any{"C1"}),
			},
		},
	}

	r := report.FromIssues(issues)
	entry := r.Documents[0].Errors[0]
	if entry.Referenced == nil {
		t.Fatal("expected Referenced to be set")
	}
	if entry.Referenced.SchemaID != "customer.schema.json" {
		t.Fatalf("unexpected referenced schema_id %q", entry.Referenced.SchemaID)
	}
	if len(entry.Referenced.Tuple) != 1 || entry.Referenced.Tuple[0] != "C1" {
		t.Fatalf("unexpected referenced tuple %#v", entry.Referenced.Tuple)
	}
}

func TestExitCodeOKWhenNoErrors(t *testing.T) {
	r := report.Report{Documents: []report.DocumentReport{
		{DocumentURI: "a.json"},
	}}
	if got := r.ExitCode(); got != report.ExitOK {
		t.Fatalf("expected ExitOK, got %d", got)
	}
}

func TestExitCodeValidationFailWhenAnyDocumentHasErrors(t *testing.T) {
	r := report.Report{Documents: []report.DocumentReport{
		{DocumentURI: "a.json"},
		{DocumentURI: "b.json", Errors: []report.Entry{{Kind: xtypes.CodeMissingMember}}},
	}}
	if got := r.ExitCode(); got != report.ExitValidationFail {
		t.Fatalf("expected ExitValidationFail, got %d", got)
	}
}

func TestFromIssuesOnEmptyInputYieldsNoDocuments(t *testing.T) {
	r := report.FromIssues(nil)
	if len(r.Documents) != 0 {
		t.Fatalf("expected no documents, got %d", len(r.Documents))
	}
	if got := r.ExitCode(); got != report.ExitOK {
		t.Fatalf("expected ExitOK on empty report, got %d", got)
	}
}
