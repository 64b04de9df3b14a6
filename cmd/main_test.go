// 指示: miu200521358
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/miu200521358/mu_skin2dae/pkg/adapter/io_model/snapshot"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/mmath"
	"github.com/miu200521358/mu_skin2dae/pkg/domain/model"
	"github.com/miu200521358/mu_skin2dae/pkg/infra/config"
	"github.com/miu200521358/mu_skin2dae/pkg/infra/history"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseOptionsWithFlags(t *testing.T) {
	errBuf := bytes.NewBuffer(nil)
	opts, err := parseOptions([]string{"-in", "scene.json", "-out", "scene.dae", "-workers", "4", "-verify"}, errBuf)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.inputPath != "scene.json" || opts.outputPath != "scene.dae" {
		t.Fatalf("path mismatch: in=%s out=%s", opts.inputPath, opts.outputPath)
	}
	if opts.overrides["workers"] != "4" || opts.overrides["verify"] != "true" {
		t.Fatalf("overrides mismatch: %v", opts.overrides)
	}
	if _, ok := opts.overrides["only-deform"]; ok {
		t.Fatalf("unset flags must not override config: %v", opts.overrides)
	}
}

func TestParseOptionsWithPositionals(t *testing.T) {
	errBuf := bytes.NewBuffer(nil)
	opts, err := parseOptions([]string{"avatar.vrm", "result.dae"}, errBuf)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.inputPath != "avatar.vrm" || opts.outputPath != "result.dae" {
		t.Fatalf("path mismatch: in=%s out=%s", opts.inputPath, opts.outputPath)
	}
}

func TestParseOptionsRequiresInput(t *testing.T) {
	errBuf := bytes.NewBuffer(nil)
	if _, err := parseOptions([]string{"-out", "scene.dae"}, errBuf); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultExportConfig()
	err := applyOverrides(&cfg, map[string]string{
		"only-deform": "false",
		"max-weights": "2",
		"axis":        "y_up_to_z_up",
		"author":      "Alice",
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if cfg.Export.OnlyDeform || cfg.Export.MaxWeightPerVertex != 2 || cfg.Export.RotationConvention != "y_up_to_z_up" || cfg.Author != "Alice" {
		t.Fatalf("config mismatch: %+v", cfg)
	}

	if err := applyOverrides(&cfg, map[string]string{"workers": "many"}); err == nil {
		t.Fatalf("expected error for invalid number")
	}
}

func TestRunExportsSnapshotToDae(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "avatar.json")
	writeTestSnapshot(t, inputPath)
	outputPath := filepath.Join(dir, "out", "avatar.dae")
	historyPath := filepath.Join(dir, "history.db")
	profilePath := filepath.Join(dir, "profile.yaml")

	out := bytes.NewBuffer(nil)
	errOut := bytes.NewBuffer(nil)
	err := run([]string{
		"-in", inputPath,
		"-out", outputPath,
		"-verify",
		"-author", "Alice",
		"-history", historyPath,
		"-write-config", profilePath,
	}, out, errOut)
	if err != nil {
		t.Fatalf("run failed: %v stderr=%s", err, errOut.String())
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	document := string(data)
	for _, want := range []string{`version="1.4.1"`, "<author>Alice</author>", "<controller ", `sid="Hips"`} {
		if !strings.Contains(document, want) {
			t.Fatalf("document should contain %s", want)
		}
	}
	if !strings.Contains(out.String(), "出力完了") {
		t.Fatalf("stdout should report completion: %s", out.String())
	}

	cfg, err := config.LoadExportConfig(profilePath)
	if err != nil {
		t.Fatalf("saved profile should load: %v", err)
	}
	if !cfg.Verify || cfg.Author != "Alice" {
		t.Fatalf("saved profile mismatch: %+v", cfg)
	}

	store, err := history.OpenHistoryStore(context.Background(), historyPath)
	if err != nil {
		t.Fatalf("open history failed: %v", err)
	}
	defer store.Close()
	records, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("read history failed: %v", err)
	}
	if len(records) != 1 || !records[0].Success || records[0].JointCount != 2 {
		t.Fatalf("history mismatch: %+v", records)
	}
}

func TestRunRejectsUnsupportedInput(t *testing.T) {
	err := run([]string{"-in", "avatar.fbx"}, bytes.NewBuffer(nil), bytes.NewBuffer(nil))
	if err == nil {
		t.Fatalf("expected error")
	}
}

// writeTestSnapshot は Hips>Spine と1枚の四角形メッシュを持つスナップショットを書き出す。
func writeTestSnapshot(t *testing.T, path string) {
	t.Helper()
	scene := model.NewScene("avatar")
	for _, entry := range []struct {
		name   string
		parent string
		y      float64
	}{
		{name: "Hips", y: 1.0},
		{name: "Spine", parent: "Hips", y: 0.2},
	} {
		bone := model.NewBone(entry.name)
		bone.Deform = true
		bone.Rest = mmath.NewTransformByPosition(0, entry.y, 0)
		if _, err := scene.Skeleton.AddBone(bone, entry.parent); err != nil {
			t.Fatalf("add bone failed: %v", err)
		}
	}
	scene.Meshes = []*model.Mesh{{
		Name: "Body",
		Vertices: []model.Vertex{
			{Position: r3.Vec{X: 0, Y: 0, Z: 0}, Weights: []model.WeightEntry{{BoneName: "Hips", Weight: 1}}},
			{Position: r3.Vec{X: 1, Y: 0, Z: 0}, Weights: []model.WeightEntry{{BoneName: "Hips", Weight: 1}}},
			{Position: r3.Vec{X: 1, Y: 1, Z: 0}, Weights: []model.WeightEntry{{BoneName: "Spine", Weight: 1}}},
			{Position: r3.Vec{X: 0, Y: 1, Z: 0}, Weights: []model.WeightEntry{{BoneName: "Spine", Weight: 1}}},
		},
		Polygons:      []model.Polygon{{VertexIndexes: []int{0, 1, 2, 3}}},
		MaterialNames: []string{"Skin"},
		ObjectWorld:   mgl64.Ident4(),
	}}
	scene.Materials["Skin"] = model.NewMaterial("Skin")
	if err := snapshot.NewSnapshotRepository().Save(path, scene); err != nil {
		t.Fatalf("save snapshot failed: %v", err)
	}
}
