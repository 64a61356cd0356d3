package acquire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
)

func TestID3Tagger(t *testing.T) {
	t.Run("Writes Frames", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "001-Song A.mp3")
		if err := os.WriteFile(path, []byte{0xff, 0xfb, 0x90, 0x00, 0x00, 0x00}, 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		meta := Metadata{Title: "Song A", Artist: "Artist1", Album: "MyMix2024", Track: 1, Total: 2}
		if err := (ID3Tagger{}).Tag(path, meta); err != nil {
			t.Fatalf("tagging failed: %v", err)
		}

		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err != nil {
			t.Fatalf("failed to reopen tag: %v", err)
		}
		defer tag.Close()

		if tag.Title() != "Song A" || tag.Artist() != "Artist1" || tag.Album() != "MyMix2024" {
			t.Errorf("unexpected frames: title=%q artist=%q album=%q", tag.Title(), tag.Artist(), tag.Album())
		}
		if trck := tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text; trck != "1/2" {
			t.Errorf("expected track 1/2, got %q", trck)
		}
	})

	t.Run("Skips Non MP3", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "001-Song A.m4a")
		os.WriteFile(path, []byte("m4a"), 0o644)

		if err := (ID3Tagger{}).Tag(path, Metadata{Title: "Song A"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, _ := os.ReadFile(path)
		if string(data) != "m4a" {
			t.Error("non-mp3 file should be untouched")
		}
	})
}
