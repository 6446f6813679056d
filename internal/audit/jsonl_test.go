// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testEvent(taskID, command, action string) Event {
	return Event{
		TaskID:   taskID,
		Command:  command,
		Decision: Decision{Action: action},
	}
}

func TestJSONLSink_ChainsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink, err := NewJSONLSink(path, WithFsync(false))
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}
	defer sink.Close()

	if err := sink.Write(testEvent("t1", "ls", "approve")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write(testEvent("t1", "shutdown", "reject")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	events, _, err := ReadEventsFromOffset(path, 0)
	if err != nil {
		t.Fatalf("ReadEventsFromOffset: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].PrevHash != "" {
		t.Errorf("first event prev_hash = %q, want empty", events[0].PrevHash)
	}
	if events[1].PrevHash != events[0].Hash {
		t.Errorf("chain broken: prev_hash %q != %q", events[1].PrevHash, events[0].Hash)
	}
	if events[0].ID == "" || events[0].Timestamp.IsZero() {
		t.Error("sink did not fill in ID and timestamp")
	}

	if n, err := VerifyChain(path); err != nil || n != 2 {
		t.Errorf("VerifyChain = %d, %v", n, err)
	}
}

func TestJSONLSink_ResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")

	sink, err := NewJSONLSink(path, WithFsync(false))
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(testEvent("t1", "ls", "approve")); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	sink, err = NewJSONLSink(path, WithFsync(false))
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(testEvent("t1", "pwd", "approve")); err != nil {
		t.Fatal(err)
	}
	sink.Close()

	events, _, err := ReadEventsFromOffset(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].PrevHash != events[0].Hash {
		t.Error("reopened sink did not resume the chain")
	}
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink, err := NewJSONLSink(path, WithFsync(false))
	if err != nil {
		t.Fatal(err)
	}
	for _, cmd := range []string{"ls", "pwd", "git status"} {
		if err := sink.Write(testEvent("t1", cmd, "approve")); err != nil {
			t.Fatal(err)
		}
	}
	sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"pwd"`, `"rm -rf /"`, 1)
	if tampered == string(data) {
		t.Fatal("test setup: command not found in log")
	}
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := VerifyChain(path); err == nil {
		t.Fatal("VerifyChain accepted a tampered log")
	}
}

func TestVerifyHash(t *testing.T) {
	evt := testEvent("t1", "ls", "approve")
	if err := evt.ComputeHash(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := evt.VerifyHash(); !ok {
		t.Fatal("freshly computed hash does not verify")
	}

	evt.Command = "rm -rf /"
	if ok, _ := evt.VerifyHash(); ok {
		t.Fatal("modified event still verifies")
	}
}

func TestReadEventsFromOffset_PartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	sink, err := NewJSONLSink(path, WithFsync(false))
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(testEvent("t1", "ls", "approve")); err != nil {
		t.Fatal(err)
	}
	sink.Close()

	events, offset, err := ReadEventsFromOffset(path, 0)
	if err != nil || len(events) != 1 {
		t.Fatalf("first read: %d events, %v", len(events), err)
	}

	// Append a partial line; the cursor must not advance past it.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"id":"incompl`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	more, offset2, err := ReadEventsFromOffset(path, offset)
	if err != nil {
		t.Fatal(err)
	}
	if len(more) != 0 {
		t.Errorf("partial line parsed as %d events", len(more))
	}
	if offset2 != offset {
		t.Errorf("offset advanced past partial line: %d -> %d", offset, offset2)
	}
}
