// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

func TestParseMethodDescriptorRoundTrip(t *testing.T) {
	cases := []string{
		"()V",
		"(I)V",
		"(Ljava/lang/String;)Z",
		"([I[[Ljava/lang/Object;)V",
		"(IJDLjava/lang/String;)Lpkg/Other;",
	}
	for _, desc := range cases {
		md, err := parseMethodDescriptor(desc)
		if err != nil {
			t.Fatalf("parse(%q): %v", desc, err)
		}
		if got := md.format(); got != desc {
			t.Fatalf("format() = %q, want %q", got, desc)
		}
	}
}

func TestParamSlotsCountsWideTypesTwice(t *testing.T) {
	md, err := parseMethodDescriptor("(IJD)V")
	if err != nil {
		t.Fatal(err)
	}
	if got := md.paramSlots(); got != 5 {
		t.Fatalf("paramSlots() = %d, want 5 (I=1, J=2, D=2)", got)
	}
}

func TestParseMethodDescriptorRejectsMissingParen(t *testing.T) {
	if _, err := parseMethodDescriptor("I)V"); err == nil {
		t.Fatal("expected error for missing '('")
	}
}

func TestParseMethodDescriptorRejectsTrailingData(t *testing.T) {
	if _, err := parseMethodDescriptor("()VX"); err == nil {
		t.Fatal("expected error for trailing data after return type")
	}
}

func TestParseMethodDescriptorRejectsUnterminatedClass(t *testing.T) {
	if _, err := parseMethodDescriptor("(Ljava/lang/String)V"); err == nil {
		t.Fatal("expected error for unterminated class type")
	}
}

func TestSynthesizeInstancePrependedDescriptor(t *testing.T) {
	got, err := synthesizeInstancePrependedDescriptor("(I)V", "pkg/Owner")
	if err != nil {
		t.Fatal(err)
	}
	want := "(Lpkg/Owner;I)V"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSynthesizeConstructorReturningDescriptor(t *testing.T) {
	got, err := synthesizeConstructorReturningDescriptor("(I)V", "pkg/Owner")
	if err != nil {
		t.Fatal(err)
	}
	want := "(I)Lpkg/Owner;"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSynthesizeConstructorReturningDescriptorRejectsNonVoid(t *testing.T) {
	if _, err := synthesizeConstructorReturningDescriptor("(I)I", "pkg/Owner"); err == nil {
		t.Fatal("expected error: constructor descriptor must return void")
	}
}

func TestBoxedWrapperClass(t *testing.T) {
	cases := map[fieldTypeKind]string{
		kindInt:     "java/lang/Integer",
		kindBoolean: "java/lang/Boolean",
		kindLong:    "java/lang/Long",
	}
	for k, want := range cases {
		if got := boxedWrapperClass(k); got != want {
			t.Fatalf("boxedWrapperClass(%v) = %q, want %q", k, got, want)
		}
	}
}

func TestFieldTypeSlots(t *testing.T) {
	if (fieldType{kind: kindLong}).slots() != 2 {
		t.Fatal("long should occupy 2 slots")
	}
	if (fieldType{kind: kindVoid}).slots() != 0 {
		t.Fatal("void should occupy 0 slots")
	}
	if (fieldType{kind: kindInt}).slots() != 1 {
		t.Fatal("int should occupy 1 slot")
	}
}
