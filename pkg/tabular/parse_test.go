package tabular

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseQueueListing(t *testing.T) {
	t.Parallel()

	stdout := "Listing queues for vhost / ...\n" +
		"orders\t12\t2\trunning\n" +
		"invoices 0 0 idle\n" +
		"\n"

	columns := []ColumnSpec{
		Column("name", ShapeToken),
		Column("messages", ShapeInteger),
		Column("consumers", ShapeInteger),
		Column("state", ShapeWord),
	}

	table, err := Parse(stdout, columns)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if table.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1 (the banner line)", table.Dropped)
	}

	want := []Record{
		{"name": "orders", "messages": "12", "consumers": "2", "state": "running"},
		{"name": "invoices", "messages": "0", "consumers": "0", "state": "idle"},
	}

	if !reflect.DeepEqual(table.Records, want) {
		t.Errorf("Records = %v, want %v", table.Records, want)
	}
}

func TestParseHonorsRequestOrder(t *testing.T) {
	t.Parallel()

	// Same line parsed under two column orders gives mirrored records.
	stdout := "5 orders\n"

	table, err := Parse(stdout, []ColumnSpec{
		Column("messages", ShapeInteger),
		Column("name", ShapeToken),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(table.Records))
	}

	if table.Records[0]["messages"] != "5" || table.Records[0]["name"] != "orders" {
		t.Errorf("record = %v", table.Records[0])
	}

	if !reflect.DeepEqual(table.Columns, []string{"messages", "name"}) {
		t.Errorf("Columns = %v, want requested order preserved", table.Columns)
	}
}

func TestParseWholeLineOrNothing(t *testing.T) {
	t.Parallel()

	// Trailing junk after the last column must drop the line, not
	// partially parse it.
	stdout := "orders 5 unexpected-extra\n"

	table, err := Parse(stdout, []ColumnSpec{
		Column("name", ShapeToken),
		Column("messages", ShapeInteger),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Records) != 0 {
		t.Errorf("Records = %v, want none", table.Records)
	}

	if table.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", table.Dropped)
	}
}

func TestParseToleratesSurroundingWhitespace(t *testing.T) {
	t.Parallel()

	stdout := "   orders   7   \r\n"

	table, err := Parse(stdout, []ColumnSpec{
		Column("name", ShapeToken),
		Column("messages", ShapeInteger),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Records) != 1 {
		t.Fatalf("Records = %v, want one", table.Records)
	}

	if table.Records[0]["messages"] != "7" {
		t.Errorf("messages = %q, want 7", table.Records[0]["messages"])
	}
}

func TestParseTagsShapeSpansSpaces(t *testing.T) {
	t.Parallel()

	stdout := "admin\t[administrator, management]\nguest\t[]\n"

	table, err := Parse(stdout, []ColumnSpec{
		Column("name", ShapeToken),
		Column("tags", ShapeTags),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(table.Records))
	}

	if table.Records[0]["tags"] != "[administrator, management]" {
		t.Errorf("tags = %q", table.Records[0]["tags"])
	}

	if table.Records[1]["tags"] != "[]" {
		t.Errorf("empty tags = %q", table.Records[1]["tags"])
	}
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	table, err := Parse("", []ColumnSpec{Column("name", ShapeToken)})
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Records) != 0 || table.Dropped != 0 {
		t.Errorf("table = %+v, want empty", table)
	}
}

func TestParseIdempotent(t *testing.T) {
	t.Parallel()

	stdout := "a 1\nb 2\nnoise line here\n"
	columns := []ColumnSpec{Column("name", ShapeWord), Column("n", ShapeInteger)}

	first, err := Parse(stdout, columns)
	if err != nil {
		t.Fatal(err)
	}

	second, err := Parse(stdout, columns)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parse not idempotent: %+v vs %+v", first, second)
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("name",
		Column("name", ShapeToken),
		Column("messages", ShapeInteger),
	)

	t.Run("empty request falls back to default", func(t *testing.T) {
		t.Parallel()

		specs, err := registry.Resolve(nil)
		if err != nil {
			t.Fatal(err)
		}

		if len(specs) != 1 || specs[0].Name != "name" {
			t.Errorf("specs = %v, want default column only", specs)
		}
	})

	t.Run("unknown column rejected", func(t *testing.T) {
		t.Parallel()

		_, err := registry.Resolve([]string{"name", "bogus"})
		if !errors.Is(err, ErrUnknownColumn) {
			t.Errorf("error = %v, want ErrUnknownColumn", err)
		}
	})

	t.Run("caller order preserved", func(t *testing.T) {
		t.Parallel()

		specs, err := registry.Resolve([]string{"messages", "name"})
		if err != nil {
			t.Fatal(err)
		}

		if specs[0].Name != "messages" || specs[1].Name != "name" {
			t.Errorf("specs = %v, want caller order", specs)
		}
	})
}
