package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
)

type stubFrame struct {
	stats  entity.FrameStats
	closed bool
}

func (f *stubFrame) Close() error {
	f.closed = true
	return nil
}

type stubReader struct {
	frames []*stubFrame
	pos    int
	closed bool
}

func (r *stubReader) Read() (port.Frame, bool) {
	if r.pos >= len(r.frames) {
		return nil, false
	}
	f := r.frames[r.pos]
	r.pos++
	return f, true
}

func (r *stubReader) Skip() bool {
	_, ok := r.Read()
	return ok
}

func (r *stubReader) Close() error {
	r.closed = true
	return nil
}

type stubOpener struct {
	reader *stubReader
	err    error
	opened []string
}

func (o *stubOpener) Open(_ context.Context, path string) (port.FrameReader, error) {
	o.opened = append(o.opened, path)
	if o.err != nil {
		return nil, o.err
	}
	return o.reader, nil
}

func framesWithEdges(edges ...float64) *stubReader {
	r := &stubReader{}
	for _, e := range edges {
		r.frames = append(r.frames, &stubFrame{stats: entity.FrameStats{EdgeDensity: e}})
	}
	return r
}

type statsScorer struct{}

func (statsScorer) Score(f port.Frame) entity.FrameStats {
	return f.(*stubFrame).stats
}

type stubEncoder struct {
	written   []string
	qualities []int
	err       error
}

func (e *stubEncoder) WriteJPEG(_ port.Frame, path string, quality int) error {
	if e.err != nil {
		return e.err
	}
	e.written = append(e.written, path)
	e.qualities = append(e.qualities, quality)
	return os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0o644)
}

func (e *stubEncoder) EncodeJPEG(port.Frame, int) ([]byte, error) {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, e.err
}

type stubProber struct {
	secs int
	err  error
}

func (p stubProber) Duration(context.Context, string) (int, error) {
	return p.secs, p.err
}

type stubDetector struct {
	imagePaths  []string
	videoPaths  []string
	durations   []int
	imageExists []bool
	report      entity.Report
	err         error
}

func (d *stubDetector) CheckImage(_ context.Context, path string) (*entity.Report, error) {
	d.imagePaths = append(d.imagePaths, path)
	_, statErr := os.Stat(path)
	d.imageExists = append(d.imageExists, statErr == nil)
	if d.err != nil {
		return nil, d.err
	}
	r := d.report
	return &r, nil
}

func (d *stubDetector) CheckVideo(_ context.Context, path string, secs int) (*entity.Report, error) {
	d.videoPaths = append(d.videoPaths, path)
	d.durations = append(d.durations, secs)
	if d.err != nil {
		return nil, d.err
	}
	r := d.report
	return &r, nil
}

var errNotFound = errors.New("job not found")

type memoryRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.AnalysisJob
	updates []entity.AnalysisJob
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{jobs: map[uuid.UUID]entity.AnalysisJob{}}
}

func (r *memoryRepo) Create(_ context.Context, job *entity.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryRepo) Update(_ context.Context, job *entity.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	r.updates = append(r.updates, *job)
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, errNotFound
	}
	return &job, nil
}

type memoryStorage struct {
	media       map[string][]byte
	downloadErr error
	frames      map[string][]byte
}

func (s *memoryStorage) DownloadMedia(_ context.Context, key, dest string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	data, ok := s.media[key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(dest, data, 0o644)
}

func (s *memoryStorage) UploadFrame(_ context.Context, key string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.frames == nil {
		s.frames = map[string][]byte{}
	}
	s.frames[key] = data
	return nil
}

type recordingPublisher struct {
	statuses [][]byte
	dlq      [][]byte
	reasons  []string
}

func (p *recordingPublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *recordingPublisher) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	p.dlq = append(p.dlq, msg)
	p.reasons = append(p.reasons, reason)
	return nil
}

type notification struct {
	email, jobID, mediaKey, errMsg string
}

type recordingNotifier struct {
	sent []notification
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, email, jobID, mediaKey, errMsg string) error {
	n.sent = append(n.sent, notification{email, jobID, mediaKey, errMsg})
	return nil
}

type analyzerFunc func(ctx context.Context, req AnalyzeRequest) (*entity.Report, error)

func (f analyzerFunc) Analyze(ctx context.Context, req AnalyzeRequest) (*entity.Report, error) {
	return f(ctx, req)
}
