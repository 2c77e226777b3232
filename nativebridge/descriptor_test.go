package nativebridge

import (
	"testing"

	"github.com/chazu/classvm/interp"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name         string
		spec         string
		static       bool
		wantTags     []interp.Tag
		wantArgWords int // argTableSize / wordSize
	}{
		{
			name:         "no args void return",
			spec:         "()V",
			wantTags:     []interp.Tag{interp.ObjectTag, interp.ObjectTag},
			wantArgWords: 2,
		},
		{
			name:         "int and float",
			spec:         "(IF)I",
			wantTags:     []interp.Tag{interp.ObjectTag, interp.ObjectTag, interp.IntTag, interp.IntTag},
			wantArgWords: 4,
		},
		{
			name: "long takes two word slots",
			spec: "(J)V",
			wantTags: []interp.Tag{
				interp.ObjectTag, interp.ObjectTag, interp.IntTag,
			},
			wantArgWords: 4, // prefix(2) + long(2)
		},
		{
			name:         "object reference type",
			spec:         "(Ljava/lang/String;)V",
			wantTags:     []interp.Tag{interp.ObjectTag, interp.ObjectTag, interp.ObjectTag},
			wantArgWords: 3,
		},
		{
			name:         "array of primitives",
			spec:         "([I)V",
			wantTags:     []interp.Tag{interp.ObjectTag, interp.ObjectTag, interp.ObjectTag},
			wantArgWords: 3,
		},
		{
			name:         "multi-dimensional object array",
			spec:         "([[Ljava/lang/String;)I",
			wantTags:     []interp.Tag{interp.ObjectTag, interp.ObjectTag, interp.ObjectTag},
			wantArgWords: 3,
		},
		{
			name:         "static drops nothing from the ABI prefix",
			spec:         "(I)V",
			static:       true,
			wantTags:     []interp.Tag{interp.ObjectTag, interp.ObjectTag, interp.IntTag},
			wantArgWords: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, argTableSize, err := ParseDescriptor(tt.spec, tt.static)
			if err != nil {
				t.Fatalf("ParseDescriptor(%q) error: %v", tt.spec, err)
			}
			if len(tags) != len(tt.wantTags) {
				t.Fatalf("ParseDescriptor(%q) tags = %v, want %v", tt.spec, tags, tt.wantTags)
			}
			for i := range tags {
				if tags[i] != tt.wantTags[i] {
					t.Errorf("ParseDescriptor(%q) tag[%d] = %v, want %v", tt.spec, i, tags[i], tt.wantTags[i])
				}
			}
			if argTableSize != tt.wantArgWords*wordSize {
				t.Errorf("ParseDescriptor(%q) argTableSize = %d, want %d", tt.spec, argTableSize, tt.wantArgWords*wordSize)
			}
		})
	}
}

func TestParseDescriptorMalformed(t *testing.T) {
	tests := []string{
		"I)V",               // missing leading (
		"(Ljava/lang/String", // unterminated class type
		"(Q)V",               // unrecognized char
		"([",                 // dangling array dimension
	}
	for _, spec := range tests {
		if _, _, err := ParseDescriptor(spec, false); err == nil {
			t.Errorf("ParseDescriptor(%q) succeeded, want error", spec)
		}
	}
}

func TestReturnWidth(t *testing.T) {
	tests := []struct {
		rc   interp.ReturnCode
		want int
	}{
		{interp.ReturnVoid, 1},
		{interp.ReturnInt, 1},
		{interp.ReturnObject, 1},
		{interp.ReturnLong, 2},
		{interp.ReturnDouble, 2},
	}
	for _, tt := range tests {
		if got := ReturnWidth(tt.rc); got != tt.want {
			t.Errorf("ReturnWidth(%v) = %d, want %d", tt.rc, got, tt.want)
		}
	}
}
