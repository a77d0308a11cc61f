// Package exr contains reference tests that compare go-openexr behavior
// against known values from the C++ OpenEXR reference implementation.
//
// These tests use hardcoded reference values computed by the C++ implementation
// to verify that go-openexr produces compatible results.
package exr

import (
	"testing"
)

// =============================================================================
// Box2i C++ Reference Values
// =============================================================================

// TestBox2i_CppSemantics verifies Box2i matches C++ Imath semantics.
func TestBox2i_CppSemantics(t *testing.T) {
	// C++ Imath Box2i semantics:
	// - Min and Max corners are inclusive
	// - Width = Max.X - Min.X + 1 (for non-empty box)
	// - Height = Max.Y - Min.Y + 1 (for non-empty box)

	tests := []struct {
		name       string
		box        Box2i
		wantWidth  int32
		wantHeight int32
		wantArea   int64
		wantEmpty  bool
	}{
		{
			name:       "1920x1080 image",
			box:        Box2i{Min: V2i{0, 0}, Max: V2i{1919, 1079}},
			wantWidth:  1920,
			wantHeight: 1080,
			wantArea:   1920 * 1080,
			wantEmpty:  false,
		},
		{
			name:       "single pixel",
			box:        Box2i{Min: V2i{0, 0}, Max: V2i{0, 0}},
			wantWidth:  1,
			wantHeight: 1,
			wantArea:   1,
			wantEmpty:  false,
		},
		{
			name:       "empty box",
			box:        Box2i{Min: V2i{10, 10}, Max: V2i{5, 5}},
			wantWidth:  -4, // Max.X - Min.X + 1 = 5 - 10 + 1 = -4
			wantHeight: -4,
			wantArea:   0, // Empty box has zero area
			wantEmpty:  true,
		},
		{
			name:       "offset box",
			box:        Box2i{Min: V2i{100, 200}, Max: V2i{199, 299}},
			wantWidth:  100,
			wantHeight: 100,
			wantArea:   10000,
			wantEmpty:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Width(); got != tt.wantWidth {
				t.Errorf("Width() = %d, want %d", got, tt.wantWidth)
			}
			if got := tt.box.Height(); got != tt.wantHeight {
				t.Errorf("Height() = %d, want %d", got, tt.wantHeight)
			}
			if got := tt.box.Area(); got != tt.wantArea {
				t.Errorf("Area() = %d, want %d", got, tt.wantArea)
			}
			if got := tt.box.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
		})
	}
}

// =============================================================================
// Serialization Reference Tests
// =============================================================================

// TestSerialization_ByteOrder verifies little-endian byte order matches C++.
func TestSerialization_ByteOrder(t *testing.T) {
	// OpenEXR uses little-endian byte order throughout
	// This verifies our XDR implementation matches

	t.Run("int32", func(t *testing.T) {
		// Value: 0x12345678
		// Little-endian bytes: 0x78, 0x56, 0x34, 0x12
		expected := []byte{0x78, 0x56, 0x34, 0x12}

		// Test via Box2i which uses int32 fields
		box := Box2i{Min: V2i{0x12345678, 0}, Max: V2i{0, 0}}

		// Note: This test documents expected byte order
		// Actual verification would require serialization access
		t.Logf("int32 0x12345678 should serialize as: %x", expected)
		_ = box // Use box to avoid unused variable
	})

	t.Run("float32", func(t *testing.T) {
		// Value: 1.0f
		// IEEE 754: 0x3F800000
		// Little-endian bytes: 0x00, 0x00, 0x80, 0x3F
		expected := []byte{0x00, 0x00, 0x80, 0x3F}
		t.Logf("float32 1.0 should serialize as: %x", expected)
	})
}

// =============================================================================
// Header Attribute Reference Tests
// =============================================================================

// TestAttribute_StandardNames documents the standard OpenEXR attribute names
// this codec recognizes or passes through untouched. Attributes this
// compositor never interprets (chromaticities, time codes, key codes, ...)
// still round-trip, just as opaque bytes rather than a typed decode.
func TestAttribute_StandardNames(t *testing.T) {
	standardAttributes := []struct {
		name        string
		attrType    string
		description string
		decoded     bool
	}{
		{"channels", "chlist", "Channel list (required)", true},
		{"compression", "compression", "Compression type (required)", true},
		{"dataWindow", "box2i", "Pixel data bounding box (required)", true},
		{"displayWindow", "box2i", "Display bounding box (required)", true},
		{"lineOrder", "lineOrder", "Scanline storage order (required)", true},
		{"pixelAspectRatio", "float", "Pixel width/height ratio (required)", true},
		{"screenWindowCenter", "v2f", "Screen window center (required)", true},
		{"screenWindowWidth", "float", "Screen window width (required)", true},
		// Optional standard attributes this compositor passes through as raw
		// bytes rather than decoding.
		{"chromaticities", "chromaticities", "CIE xy color primaries", false},
		{"envmap", "envmap", "Environment map type", false},
		{"keyCode", "keycode", "Film edge code", false},
		{"timeCode", "timecode", "SMPTE time code", false},
		{"framesPerSecond", "rational", "Frame rate", false},
		{"multiView", "stringvector", "Multi-view image views", false},
		{"worldToCamera", "m44f", "World to camera transform", false},
		{"worldToNDC", "m44f", "World to NDC transform", false},
	}

	t.Log("Standard OpenEXR attributes this codec recognizes:")
	for _, attr := range standardAttributes {
		t.Logf("  %-25s %-18s decoded=%-5v %s", attr.name, attr.attrType, attr.decoded, attr.description)
	}
}
