package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Layout faults
	LayoutInfo                 Code = 1000
	LayoutRecursiveEnum        Code = 1001
	LayoutNonFixedMultiPayload Code = 1002
	LayoutBadRawValue          Code = 1003
	LayoutInvalidCase          Code = 1004
	LayoutTagCollision         Code = 1005
	LayoutInvariant            Code = 1006
	LayoutUnsized              Code = 1007

	// Declaration files
	DeclInfo        Code = 2000
	DeclParse       Code = 2001
	DeclUnknownType Code = 2002
	DeclDuplicate   Code = 2003
	DeclUnknownEnum Code = 2004
	DeclBadTarget   Code = 2005
	DeclEmptyEnum   Code = 2006

	// I/O
	IOLoadFileError  Code = 3001
	IOCacheReadError Code = 3002

	ObsInfo    Code = 4000
	ObsTimings Code = 4001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                "Unknown error",
		LayoutInfo:                 "Layout information",
		LayoutRecursiveEnum:        "recursive enum needs indirect storage",
		LayoutNonFixedMultiPayload: "multi-payload enum with runtime-sized payload",
		LayoutBadRawValue:          "raw value does not fit the C storage type",
		LayoutInvalidCase:          "invalid case list",
		LayoutTagCollision:         "no-payload pattern collides with a payload tag",
		LayoutInvariant:            "layout invariant violated",
		LayoutUnsized:              "type has no layout",
		DeclInfo:                   "Declaration information",
		DeclParse:                  "malformed declaration file",
		DeclUnknownType:            "unknown type",
		DeclDuplicate:              "duplicate declaration",
		DeclUnknownEnum:            "unknown enum",
		DeclBadTarget:              "unsupported target",
		DeclEmptyEnum:              "enum declares no cases",
		IOLoadFileError:            "I/O load file error",
		IOCacheReadError:           "layout cache unreadable",
		ObsInfo:                    "Observability information",
		ObsTimings:                 "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DCL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
