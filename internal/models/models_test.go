package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestSnapshot_Fields(t *testing.T) {
	typ := reflect.TypeOf(Snapshot{})

	assertGormTag(t, typ, "Key", "primaryKey")
	assertGormTag(t, typ, "Key", "size:128")
	assertGormTag(t, typ, "Payload", "not null")
	assertGormTag(t, typ, "Version", "default:1")
	assertGormTag(t, typ, "SavedAt", "index")

	assertFieldType(t, typ, "Payload", "[]uint8")
	assertFieldType(t, typ, "SavedAt", "time.Time")
}

func TestSnapshot_TableName(t *testing.T) {
	if got := (Snapshot{}).TableName(); got != "campaign_snapshots" {
		t.Errorf("TableName() = %q, want %q", got, "campaign_snapshots")
	}
}

func TestLoopEventRecord_Fields(t *testing.T) {
	typ := reflect.TypeOf(LoopEventRecord{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "EventID", "uniqueIndex")
	assertGormTag(t, typ, "CampaignID", "index:idx_campaign_loop")
	assertGormTag(t, typ, "LoopID", "index:idx_campaign_loop")
	assertGormTag(t, typ, "Agent", "size:16")
	assertGormTag(t, typ, "Message", "type:text")
	assertGormTag(t, typ, "CreatedAt", "index")

	assertFieldType(t, typ, "ExecutionTimeMs", "int64")
	assertFieldType(t, typ, "Success", "bool")
}

func TestLoopEventRecord_TableName(t *testing.T) {
	if got := (LoopEventRecord{}).TableName(); got != "loop_event_archive" {
		t.Errorf("TableName() = %q, want %q", got, "loop_event_archive")
	}
}

func TestLoopEventRecord_Instantiation(t *testing.T) {
	now := time.Now()
	r := LoopEventRecord{
		EventID:         "event-1",
		CampaignID:      "camp-1",
		LoopID:          "loop-scout",
		Agent:           "scout",
		Success:         true,
		Message:         "found 2 gaps",
		ExecutionTimeMs: 12,
		CreatedAt:       now,
	}
	if r.Agent != "scout" {
		t.Errorf("Agent = %q, want %q", r.Agent, "scout")
	}
	if !r.Success {
		t.Error("Success = false, want true")
	}
}
