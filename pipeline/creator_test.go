package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-video-creator/types"
)

type fakeStore struct {
	root  string
	saves int
}

func (s *fakeStore) Save(p *types.Project) error {
	s.saves++
	return nil
}

func (s *fakeStore) Dir(id string) string {
	return filepath.Join(s.root, id)
}

type fakeScripts struct {
	scenes int
	err    error
}

func (f *fakeScripts) Generate(ctx context.Context, subject string, durationSeconds int) (*types.ScriptResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := &types.ScriptResult{
		Title:              "Titlu: " + subject,
		Music:              "orchestral",
		YouTubeTitle:       subject + " | Istorie",
		YouTubeDescription: "Despre " + subject,
	}
	for i := 0; i < f.scenes; i++ {
		result.Scripts = append(result.Scripts, fmt.Sprintf("Scena %d.", i+1))
		result.Descriptions = append(result.Descriptions, fmt.Sprintf("scene %d visuals", i+1))
	}
	return result, nil
}

type fakeImages struct {
	batchErr     error
	batchCalls   int
	lastIsShort  bool
	regenIndexes []int
}

func (f *fakeImages) GenerateBatch(ctx context.Context, projectDir string, descriptions []string, isShort bool) ([]string, error) {
	f.batchCalls++
	f.lastIsShort = isShort
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	refs := make([]string, 0, len(descriptions))
	for i := range descriptions {
		path, err := writeAsset(projectDir, "images", fmt.Sprintf("scene%d-image.webp", i+1))
		if err != nil {
			return nil, err
		}
		refs = append(refs, path)
	}
	return refs, nil
}

func (f *fakeImages) RegenerateOne(ctx context.Context, projectDir string, sceneIndex int, description string, isShort bool) (string, error) {
	f.regenIndexes = append(f.regenIndexes, sceneIndex)
	return writeAsset(projectDir, "images", fmt.Sprintf("scene%d-image.webp", sceneIndex+1))
}

type fakeAudio struct {
	produce      int // scenes the batch actually yields; -1 means all
	regenIndexes []int
	regenErr     error
	trimmed      []string
}

func (f *fakeAudio) GenerateBatch(ctx context.Context, projectDir string, lines []string, durationSeconds int) []string {
	want := len(lines)
	if f.produce >= 0 && f.produce < want {
		want = f.produce
	}
	refs := make([]string, 0, want)
	for i := 0; i < want; i++ {
		path, err := writeAsset(projectDir, "audio", fmt.Sprintf("scene%d-audio.mp3", i+1))
		if err != nil {
			continue
		}
		refs = append(refs, path)
	}
	return refs
}

func (f *fakeAudio) RegenerateOne(ctx context.Context, projectDir string, sceneIndex int, text string, durationSeconds int) (string, error) {
	f.regenIndexes = append(f.regenIndexes, sceneIndex)
	if f.regenErr != nil {
		return "", f.regenErr
	}
	return writeAsset(projectDir, "audio", fmt.Sprintf("scene%d-audio.mp3", sceneIndex+1))
}

func (f *fakeAudio) TrimSilence(audioPath string, isShort bool) string {
	f.trimmed = append(f.trimmed, audioPath)
	return audioPath
}

type fakeAssembler struct {
	err           error
	calls         int
	images        []string
	audioFiles    []string
	sceneDuration float64
}

func (f *fakeAssembler) Assemble(ctx context.Context, projectID string, images, audioFiles, scripts []string, sceneDuration float64) (string, error) {
	f.calls++
	f.images = images
	f.audioFiles = audioFiles
	f.sceneDuration = sceneDuration
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(projectID, "output.mp4"), nil
}

func writeAsset(projectDir, subdir, name string) (string, error) {
	dir := filepath.Join(projectDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("asset"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type progressEvent struct {
	message string
	percent int
}

func recordProgress(events *[]progressEvent) types.ProgressFunc {
	return func(message string, percent int) {
		*events = append(*events, progressEvent{message, percent})
	}
}

func testCreator(t *testing.T, scripts *fakeScripts, images *fakeImages, audio *fakeAudio, video *fakeAssembler) (*Creator, *fakeStore) {
	t.Helper()
	store := &fakeStore{root: t.TempDir()}
	return NewCreator(scripts, images, audio, video, store), store
}

func newProject(duration int) *types.Project {
	return &types.Project{
		ID:       "p1",
		Subject:  "Castelul Bran",
		Duration: duration,
	}
}

func TestCreateShortVideo(t *testing.T) {
	scripts := &fakeScripts{scenes: 6}
	images := &fakeImages{}
	audio := &fakeAudio{produce: -1}
	video := &fakeAssembler{}
	creator, store := testCreator(t, scripts, images, audio, video)

	var events []progressEvent
	p := newProject(30)
	if err := creator.Create(context.Background(), p, recordProgress(&events), false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(p.Images) != 6 || len(p.AudioFiles) != 6 || len(p.Scripts) != 6 {
		t.Errorf("Expected 6 scenes everywhere, got %d images, %d audio, %d scripts",
			len(p.Images), len(p.AudioFiles), len(p.Scripts))
	}
	if p.OutputPath == "" {
		t.Error("Expected output path set")
	}
	if p.Metadata.YouTubeTitle == "" || len(p.Metadata.ImageDescriptions) != 6 {
		t.Errorf("Expected metadata populated, got %+v", p.Metadata)
	}
	if !images.lastIsShort {
		t.Error("30s video must be generated in short orientation")
	}
	if video.sceneDuration != 5.0 {
		t.Errorf("Expected 5s scene duration, got %g", video.sceneDuration)
	}
	if store.saves < 4 {
		t.Errorf("Expected write-through saves after each stage, got %d", store.saves)
	}

	wantPercents := []int{0, 20, 25, 50, 80, 100}
	if len(events) != len(wantPercents) {
		t.Fatalf("Expected %d progress events, got %d: %v", len(wantPercents), len(events), events)
	}
	for i, want := range wantPercents {
		if events[i].percent != want {
			t.Errorf("event %d percent = %d, want %d (%q)", i, events[i].percent, want, events[i].message)
		}
	}
	if events[len(events)-1].message != "Video creation complete!" {
		t.Errorf("Unexpected final message %q", events[len(events)-1].message)
	}
}

func TestCreateLongVideoOrientation(t *testing.T) {
	scripts := &fakeScripts{scenes: 24}
	images := &fakeImages{}
	audio := &fakeAudio{produce: -1}
	video := &fakeAssembler{}
	creator, _ := testCreator(t, scripts, images, audio, video)

	p := newProject(120)
	if err := creator.Create(context.Background(), p, nil, false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if images.lastIsShort {
		t.Error("120s video must be generated in long orientation")
	}
	if len(p.Images) != 24 {
		t.Errorf("Expected 24 images, got %d", len(p.Images))
	}
}

func TestCreateSkipAudio(t *testing.T) {
	scripts := &fakeScripts{scenes: 4}
	images := &fakeImages{}
	audio := &fakeAudio{produce: -1}
	video := &fakeAssembler{}
	creator, _ := testCreator(t, scripts, images, audio, video)

	p := newProject(20)
	if err := creator.Create(context.Background(), p, nil, true); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(p.AudioFiles) != 0 {
		t.Errorf("Expected no audio files, got %v", p.AudioFiles)
	}
	if len(video.audioFiles) != 0 {
		t.Errorf("Assembler received audio for a silent video: %v", video.audioFiles)
	}
}

func TestCreateScriptFailureHaltsRun(t *testing.T) {
	scripts := &fakeScripts{err: fmt.Errorf("model unavailable")}
	images := &fakeImages{}
	video := &fakeAssembler{}
	creator, _ := testCreator(t, scripts, images, &fakeAudio{produce: -1}, video)

	var events []progressEvent
	err := creator.Create(context.Background(), newProject(30), recordProgress(&events), false)
	if err == nil {
		t.Fatal("Expected script failure to propagate")
	}
	if images.batchCalls != 0 || video.calls != 0 {
		t.Error("Later stages must not run after script failure")
	}
	last := events[len(events)-1]
	if !strings.HasPrefix(last.message, "Error: ") || last.percent != 0 {
		t.Errorf("Expected error report at 0%%, got %+v", last)
	}
}

func TestCreateImageFailureHaltsRun(t *testing.T) {
	scripts := &fakeScripts{scenes: 6}
	images := &fakeImages{batchErr: fmt.Errorf("rate limit exceeded")}
	video := &fakeAssembler{}
	creator, _ := testCreator(t, scripts, images, &fakeAudio{produce: -1}, video)

	var events []progressEvent
	p := newProject(30)
	err := creator.Create(context.Background(), p, recordProgress(&events), false)
	if err == nil {
		t.Fatal("Expected image failure to propagate")
	}
	if video.calls != 0 {
		t.Error("Assembly must not run after image failure")
	}
	// Script metadata persisted before the failing stage is kept.
	if len(p.Scripts) != 6 || len(p.Metadata.ImageDescriptions) != 6 {
		t.Error("Expected script results to survive the image failure")
	}
}

func TestCreateAudioShortfallFails(t *testing.T) {
	scripts := &fakeScripts{scenes: 6}
	images := &fakeImages{}
	audio := &fakeAudio{produce: 5}
	video := &fakeAssembler{}
	creator, _ := testCreator(t, scripts, images, audio, video)

	p := newProject(30)
	err := creator.Create(context.Background(), p, nil, false)
	if err == nil {
		t.Fatal("Expected failure when narration is incomplete")
	}
	if !strings.Contains(err.Error(), "5 of 6") {
		t.Errorf("Expected shortfall counts in error, got %v", err)
	}
	if video.calls != 0 {
		t.Error("Assembly must not run with incomplete narration")
	}
	// Images generated before the audio stage are kept on the project.
	if len(p.Images) != 6 {
		t.Errorf("Expected images to survive audio failure, got %d", len(p.Images))
	}
}

func TestRecreateRegeneratesOnlyMissingAudio(t *testing.T) {
	scripts := &fakeScripts{scenes: 3}
	images := &fakeImages{}
	audio := &fakeAudio{produce: -1}
	video := &fakeAssembler{}
	creator, store := testCreator(t, scripts, images, audio, video)

	p := newProject(15)
	p.Scripts = []string{"Scena 1.", "Scena 2.", "Scena 3."}
	projectDir := store.Dir(p.ID)
	for i := 1; i <= 3; i++ {
		img, err := writeAsset(projectDir, "images", fmt.Sprintf("scene%d-image.webp", i))
		if err != nil {
			t.Fatal(err)
		}
		p.Images = append(p.Images, img)
	}
	// Scene 2's audio exists only as a stale path.
	a1, _ := writeAsset(projectDir, "audio", "scene1-audio.mp3")
	a3, _ := writeAsset(projectDir, "audio", "scene3-audio.mp3")
	p.AudioFiles = []string{a1, filepath.Join(projectDir, "audio", "scene2-audio.mp3"), a3}

	if err := creator.Recreate(context.Background(), p, nil); err != nil {
		t.Fatalf("Recreate failed: %v", err)
	}

	if len(audio.regenIndexes) != 1 || audio.regenIndexes[0] != 1 {
		t.Errorf("Expected only scene 2 regenerated, got indexes %v", audio.regenIndexes)
	}
	if p.AudioFiles[0] != a1 || p.AudioFiles[2] != a3 {
		t.Error("Valid audio entries must be preserved by index")
	}
	if len(audio.trimmed) != 3 {
		t.Errorf("Expected silence trimming applied to all 3 files, got %d", len(audio.trimmed))
	}
	if video.calls != 1 {
		t.Errorf("Expected one assembly, got %d", video.calls)
	}
}

func TestRecreateRebuildsImagesFromDescriptions(t *testing.T) {
	scripts := &fakeScripts{scenes: 2}
	images := &fakeImages{}
	video := &fakeAssembler{}
	creator, _ := testCreator(t, scripts, images, &fakeAudio{produce: -1}, video)

	p := newProject(10)
	p.Metadata.ImageDescriptions = []string{"one", "two"}

	if err := creator.Recreate(context.Background(), p, nil); err != nil {
		t.Fatalf("Recreate failed: %v", err)
	}
	if images.batchCalls != 1 {
		t.Errorf("Expected one image batch, got %d", images.batchCalls)
	}
	if len(p.Images) != 2 {
		t.Errorf("Expected 2 regenerated images, got %d", len(p.Images))
	}
}

func TestRecreateFailsWithoutImagesOrDescriptions(t *testing.T) {
	creator, _ := testCreator(t, &fakeScripts{}, &fakeImages{}, &fakeAudio{produce: -1}, &fakeAssembler{})

	err := creator.Recreate(context.Background(), newProject(10), nil)
	if err == nil || !strings.Contains(err.Error(), "no images found") {
		t.Errorf("Expected no-images error, got %v", err)
	}
}

func TestRegenerateSceneReplacesOnlyTarget(t *testing.T) {
	scripts := &fakeScripts{scenes: 3}
	images := &fakeImages{}
	audio := &fakeAudio{produce: -1}
	creator, _ := testCreator(t, scripts, images, audio, &fakeAssembler{})

	p := newProject(15)
	p.Scripts = []string{"a", "b", "c"}
	p.Images = []string{"/old/1.webp", "/old/2.webp", "/old/3.webp"}
	p.AudioFiles = []string{"/old/1.mp3", "/old/2.mp3", "/old/3.mp3"}
	p.Metadata.ImageDescriptions = []string{"d1", "d2", "d3"}

	if err := creator.RegenerateScene(context.Background(), p, 1, nil, false); err != nil {
		t.Fatalf("RegenerateScene failed: %v", err)
	}

	if p.Images[0] != "/old/1.webp" || p.Images[2] != "/old/3.webp" {
		t.Error("Untouched scene images must keep their paths")
	}
	if p.Images[1] == "/old/2.webp" {
		t.Error("Target scene image was not replaced")
	}
	if p.AudioFiles[0] != "/old/1.mp3" || p.AudioFiles[2] != "/old/3.mp3" {
		t.Error("Untouched scene audio must keep their paths")
	}
	if p.AudioFiles[1] == "/old/2.mp3" {
		t.Error("Target scene audio was not replaced")
	}
	if len(images.regenIndexes) != 1 || images.regenIndexes[0] != 1 {
		t.Errorf("Expected single image regeneration at index 1, got %v", images.regenIndexes)
	}
}

func TestRegenerateSceneOutOfRange(t *testing.T) {
	creator, _ := testCreator(t, &fakeScripts{}, &fakeImages{}, &fakeAudio{produce: -1}, &fakeAssembler{})

	p := newProject(15)
	p.Images = []string{"/old/1.webp"}
	p.Metadata.ImageDescriptions = []string{"d1"}

	if err := creator.RegenerateScene(context.Background(), p, 5, nil, true); err == nil {
		t.Error("Expected out-of-range error")
	}
	if err := creator.RegenerateScene(context.Background(), p, -1, nil, true); err == nil {
		t.Error("Expected negative-index error")
	}
}

func TestRegenerateSceneAudioFailurePropagates(t *testing.T) {
	audio := &fakeAudio{produce: -1, regenErr: fmt.Errorf("voice unavailable")}
	creator, store := testCreator(t, &fakeScripts{}, &fakeImages{}, audio, &fakeAssembler{})

	p := newProject(15)
	p.Scripts = []string{"a"}
	p.Images = []string{"/old/1.webp"}
	p.AudioFiles = []string{"/old/1.mp3"}
	p.Metadata.ImageDescriptions = []string{"d1"}

	err := creator.RegenerateScene(context.Background(), p, 0, nil, false)
	if err == nil || !strings.Contains(err.Error(), "voice unavailable") {
		t.Errorf("Expected audio regeneration error, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("Failed regeneration must not persist, got %d saves", store.saves)
	}
}

func TestRunProgressDedupAndClamp(t *testing.T) {
	var events []progressEvent
	r := newRun("p1", "create", recordProgress(&events))

	r.report("working", 10)
	r.report("working", 10)
	r.report("working", 15)
	r.report("done", -5)
	r.report("over", 250)

	want := []progressEvent{
		{"working", 10},
		{"working", 15},
		{"done", 0},
		{"over", 100},
	}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestRunNilProgress(t *testing.T) {
	r := newRun("p1", "create", nil)
	r.report("no subscriber", 50)
	if err := r.fail(fmt.Errorf("boom"), 50); err == nil {
		t.Error("fail must return the error")
	}
}
