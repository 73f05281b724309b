package entity

import "testing"

func TestBuildStorageCode(t *testing.T) {
	code := BuildStorageCode("Z1", "A", 2, PositionFront, SlotMiddle)
	if code != "Z1-A-2-F-Middle" {
		t.Errorf("expected Z1-A-2-F-Middle, got %s", code)
	}
}

func TestParseStorageCode(t *testing.T) {
	s, err := ParseStorageCode("Z1-A-1-F-Left")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Area != "Z1" || s.Shelf != "A" || s.Floor != 1 || s.Position != PositionFront || s.Slot != SlotLeft {
		t.Errorf("parsed fields mismatch: %+v", s)
	}
}

func TestParseStorageCodeInvalid(t *testing.T) {
	cases := []string{
		"Z1-A-1-F",           // 段数不足
		"Z1-A-1-F-Left-X",    // 段数过多
		"Z1-A-x-F-Left",      // 层数非数字
		"Z1-A-0-F-Left",      // 层数非正
		"Z1-A-1-X-Left",      // 方位非法
		"Z1-A-1-F-Center",    // 位置非法
		"",
	}

	for _, code := range cases {
		if _, err := ParseStorageCode(code); err == nil {
			t.Errorf("expected error for code %q", code)
		}
	}
}
