// Package wire encodes flashing progress as newline-delimited records so a
// privileged writer process can stream it to an unprivileged front end.
//
// Each record is one line in tuple syntax:
//
//	Size(2229190656)
//	Device("/dev/sdb")
//	Set("/dev/sdb",589824)
//	Message("/dev/sdb","S")
//	Finished("/dev/sdb")
//
// Strings are double-quoted with backslash escapes, so a record never spans
// more than one line.
package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a record.
type Kind int

const (
	Size Kind = iota + 1
	Device
	Set
	Message
	Finished
)

var kindNames = [...]string{
	Size:     "Size",
	Device:   "Device",
	Set:      "Set",
	Message:  "Message",
	Finished: "Finished",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func kindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n != "" && n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Record is one wire message. Path is set for every kind but Size; Value
// carries Size and Set; Text carries Message.
type Record struct {
	Kind  Kind
	Path  string
	Value uint64
	Text  string
}

// String renders the record without the trailing newline.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.Kind.String())
	b.WriteByte('(')
	switch r.Kind {
	case Size:
		b.WriteString(strconv.FormatUint(r.Value, 10))
	case Device, Finished:
		b.WriteString(strconv.Quote(r.Path))
	case Set:
		b.WriteString(strconv.Quote(r.Path))
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(r.Value, 10))
	case Message:
		b.WriteString(strconv.Quote(r.Path))
		b.WriteByte(',')
		b.WriteString(strconv.Quote(r.Text))
	}
	b.WriteByte(')')
	return b.String()
}

func SizeRecord(size uint64) Record          { return Record{Kind: Size, Value: size} }
func DeviceRecord(path string) Record        { return Record{Kind: Device, Path: path} }
func SetRecord(path string, v uint64) Record { return Record{Kind: Set, Path: path, Value: v} }
func FinishedRecord(path string) Record      { return Record{Kind: Finished, Path: path} }

// MessageRecord joins a status kind and its text the way the protocol
// carries them: the bare kind when text is empty, else "kind text".
func MessageRecord(path, kind, text string) Record {
	if text != "" {
		kind += " " + text
	}
	return Record{Kind: Message, Path: path, Text: kind}
}

// SplitMessage undoes MessageRecord's joining.
func SplitMessage(text string) (kind, rest string) {
	kind, rest, _ = strings.Cut(text, " ")
	return kind, rest
}
