package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/campaignyard/internal/campaign"
)

func TestSnapshotExport(t *testing.T) {
	path := writeConfig(t)
	out, err := run(t, "snapshot", "export", "-c", path)
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	var snap campaign.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode export: %v\n%s", err, out)
	}
	if snap.Version != campaign.SnapshotVersion {
		t.Errorf("Version = %d, want %d", snap.Version, campaign.SnapshotVersion)
	}
	if snap.Meta.Name != "Debut EP" {
		t.Errorf("Meta.Name = %q", snap.Meta.Name)
	}
	if len(snap.Loops.Loops) != 2 {
		t.Errorf("len(Loops) = %d, want 2 seeded", len(snap.Loops.Loops))
	}
}

func TestSnapshotImport(t *testing.T) {
	src := campaign.New(campaign.Options{Meta: campaign.CampaignMeta{ID: "debut-ep", Name: "Imported EP"}})
	track := src.AddTrack("Promo", "")
	clip := src.AddClip(campaign.ClipSpec{TrackID: track, Name: "Teaser", Duration: 4})
	src.AddCard(campaign.CardSpec{Type: campaign.CardHope, LinkedClipID: clip})
	data, err := json.Marshal(src.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatal(err)
	}

	path := writeConfig(t)
	out, err := run(t, "snapshot", "import", file, "-c", path)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, `Imported "Imported EP": 1 tracks, 1 clips, 1 cards`) {
		t.Errorf("output = %s", out)
	}

	// The import was saved, so a fresh export sees it.
	out, err = run(t, "snapshot", "export", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	var snap campaign.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Timeline.Clips) != 1 || snap.Timeline.Clips[0].Name != "Teaser" {
		t.Errorf("clips after import = %+v", snap.Timeline.Clips)
	}
}

func TestSnapshotImport_BadFile(t *testing.T) {
	path := writeConfig(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(file, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "snapshot", "import", file, "-c", path)
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("err = %v, want decode error", err)
	}

	if _, err := run(t, "snapshot", "import", "-c", path); err == nil {
		t.Error("expected error without a file argument")
	}
}
