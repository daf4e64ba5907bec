package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// testObject is a minimal Resource. Besides regular metadata it
// accepts a short {"v": "..."} form carrying only the version.
type testObject struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
}

func (o *testObject) DeepCopyObject() runtime.Object {
	cp := *o
	o.ObjectMeta.DeepCopyInto(&cp.ObjectMeta)
	return &cp
}

func (o *testObject) UnmarshalJSON(b []byte) error {
	var aux struct {
		V        string            `json:"v"`
		Kind     string            `json:"kind"`
		Metadata metav1.ObjectMeta `json:"metadata"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.Kind = aux.Kind
	o.ObjectMeta = aux.Metadata
	if aux.V != "" {
		o.ResourceVersion = aux.V
	}
	return nil
}

func newTestDecoder() *Decoder[*testObject] {
	return NewDecoder(func() *testObject { return &testObject{} })
}

func eventLine(typ WatchEventType, rv string) string {
	return fmt.Sprintf(`{"type":%q,"object":{"kind":"Pod","metadata":{"name":"pod-%s","namespace":"default","resourceVersion":%q}}}`+"\n", typ, rv, rv)
}

func statusLine(reason metav1.StatusReason, code int) string {
	return fmt.Sprintf(`{"type":"ERROR","object":{"kind":"Status","apiVersion":"v1","status":"Failure","message":"watch failed","reason":%q,"code":%d}}`+"\n", reason, code)
}

const expiredLine = `{"type":"ERROR","object":{"kind":"Status","apiVersion":"v1","status":"Failure","message":"too old resource version: 1 (5)","reason":"Expired","code":410}}` + "\n"

// chunkReader returns one chunk per Read, then io.EOF.
type chunkReader struct {
	chunks []string
	closed bool
}

func newChunkReader(chunks ...string) *chunkReader {
	return &chunkReader{chunks: chunks}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	return nil
}

// errReader fails every Read with err.
type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
func (r errReader) Close() error             { return nil }

// recorder keeps the order of list and watch calls across fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type listResult struct {
	page ListPage
	err  error
}

// fakeLister replays scripted results and cancels the run once the
// script is exhausted.
type fakeLister struct {
	rec     *recorder
	cancel  context.CancelFunc
	mu      sync.Mutex
	results []listResult
	tokens  []string
}

func (l *fakeLister) List(ctx context.Context, _ int64, continueToken string) (ListPage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rec.add("list:" + continueToken)
	l.tokens = append(l.tokens, continueToken)
	if len(l.results) == 0 {
		l.cancel()
		return ListPage{}, ctx.Err()
	}
	res := l.results[0]
	l.results = l.results[1:]
	return res.page, res.err
}

type watchResult struct {
	body io.ReadCloser
	err  error
}

// fakeOpener replays scripted watch responses and cancels the run once
// the script is exhausted.
type fakeOpener struct {
	rec       *recorder
	cancel    context.CancelFunc
	mu        sync.Mutex
	results   []watchResult
	bookmarks []bool
}

func (o *fakeOpener) OpenWatch(ctx context.Context, rv string, allowBookmarks bool) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.rec.add("watch:" + rv)
	o.bookmarks = append(o.bookmarks, allowBookmarks)
	if len(o.results) == 0 {
		o.cancel()
		return nil, ctx.Err()
	}
	res := o.results[0]
	o.results = o.results[1:]
	return res.body, res.err
}

func stream(lines ...string) watchResult {
	return watchResult{body: newChunkReader(strings.Join(lines, ""))}
}

func page(rv, cont string) listResult {
	return listResult{page: ListPage{ResourceVersion: rv, Continue: cont}}
}
