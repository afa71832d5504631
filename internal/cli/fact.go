package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
)

func init() {
	factCmd.Flags().BoolVar(&factRetract, "delete", false, "retract the fact instead of asserting it")
	rootCmd.AddCommand(factCmd)
}

var factRetract bool

var factCmd = &cobra.Command{
	Use:   "fact TABLE VALUE...",
	Short: "Assert or retract a base fact",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFact,
}

func runFact(cmd *cobra.Command, args []string) error {
	table := args[0]
	rawValues := args[1:]

	if addr != "" {
		values := make([]interface{}, len(rawValues))
		for i, s := range rawValues {
			values[i] = parseLooseValue(s)
		}
		if err := newHTTPClient(addr).fact(table, values, factRetract); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	}

	d, err := embeddedEngine()
	if err != nil {
		return err
	}
	defer d.Close()

	var values []domain.Datum
	var convErr error
	snapErr := d.Engine.Router.Snapshot(func(cat *catalog.Catalog) {
		store, ok := cat.Table(table)
		if !ok {
			convErr = fmt.Errorf("unknown table %q", table)
			return
		}
		schema := store.Def().Schema
		if len(rawValues) != schema.TupleSize() {
			convErr = fmt.Errorf("table %q expects %d columns, got %d", table, schema.TupleSize(), len(rawValues))
			return
		}
		values = make([]domain.Datum, len(rawValues))
		for i, s := range rawValues {
			datum, err := parseDatum(s, schema.Columns[i].Type)
			if err != nil {
				convErr = err
				return
			}
			values[i] = datum
		}
	})
	if snapErr != nil {
		return snapErr
	}
	if convErr != nil {
		return convErr
	}

	polarity := domain.Insert
	if factRetract {
		polarity = domain.Delete
	}
	if err := d.Engine.InstallFact(table, values, polarity); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// parseLooseValue guesses a JSON-compatible type for an untyped CLI
// argument, since HTTP-mode facts are type-checked server-side against the
// table's schema instead.
func parseLooseValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// parseDatum parses a CLI argument against a known column kind.
func parseDatum(s string, kind domain.Kind) (domain.Datum, error) {
	switch kind {
	case domain.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return domain.Datum{}, fmt.Errorf("%q is not a bool", s)
		}
		return domain.Bool(b), nil
	case domain.KindChar:
		r := []rune(s)
		if len(r) != 1 {
			return domain.Datum{}, fmt.Errorf("%q is not a single character", s)
		}
		return domain.Char(r[0]), nil
	case domain.KindI16:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return domain.Datum{}, fmt.Errorf("%q is not an i16", s)
		}
		return domain.I16(int16(n)), nil
	case domain.KindI32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return domain.Datum{}, fmt.Errorf("%q is not an i32", s)
		}
		return domain.I32(int32(n)), nil
	case domain.KindI64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.Datum{}, fmt.Errorf("%q is not an i64", s)
		}
		return domain.I64(n), nil
	case domain.KindF64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Datum{}, fmt.Errorf("%q is not a float64", s)
		}
		return domain.F64(f), nil
	case domain.KindString:
		return domain.Str(s), nil
	default:
		return domain.Datum{}, fmt.Errorf("unknown column kind %v", kind)
	}
}
