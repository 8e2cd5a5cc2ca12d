// AngelaMos | 2026
// mapping.go

package mirror

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// Field pairs a relational column with its document field name.
type Field struct {
	Column   string
	Document string
	index    int
}

var fieldMaps sync.Map

// FieldMap derives the column to document mapping for a row type from its
// db and bson struct tags. Every persisted field must carry both tags.
func FieldMap(t reflect.Type) ([]Field, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if cached, ok := fieldMaps.Load(t); ok {
		return cached.([]Field), nil //nolint:forcetypeassert // only []Field stored
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("field map: %s is not a struct", t)
	}

	fields := make([]Field, 0, t.NumField())
	seen := make(map[string]string, t.NumField())

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		column := tagName(sf.Tag.Get("db"))
		if column == "" || column == "-" {
			continue
		}

		document := tagName(sf.Tag.Get("bson"))
		if document == "" || document == "-" {
			return nil, fmt.Errorf(
				"field map: %s.%s has column %q but no document field",
				t.Name(), sf.Name, column,
			)
		}

		if prev, dup := seen[document]; dup {
			return nil, fmt.Errorf(
				"field map: %s maps %q and %q to %q",
				t.Name(), prev, column, document,
			)
		}
		seen[document] = column

		fields = append(fields, Field{
			Column:   column,
			Document: document,
			index:    i,
		})
	}

	actual, _ := fieldMaps.LoadOrStore(t, fields)
	return actual.([]Field), nil //nolint:forcetypeassert // only []Field stored
}

// Document renders a row as the document written to the mirror store.
func Document(row any) (bson.M, error) {
	v := reflect.ValueOf(row)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("document: nil row")
		}
		v = v.Elem()
	}

	fields, err := FieldMap(v.Type())
	if err != nil {
		return nil, err
	}

	doc := make(bson.M, len(fields))
	for _, f := range fields {
		fv := v.Field(f.index)
		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			doc[f.Document] = nil
			continue
		}
		doc[f.Document] = fv.Interface()
	}

	return doc, nil
}

// DocumentField returns the document name for a column, or the column
// itself when the row type does not map it.
func DocumentField(t reflect.Type, column string) string {
	fields, err := FieldMap(t)
	if err != nil {
		return column
	}
	for _, f := range fields {
		if f.Column == column {
			return f.Document
		}
	}
	return column
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
