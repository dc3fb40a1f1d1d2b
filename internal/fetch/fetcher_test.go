package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/korean"

	"github.com/knu-notice/noticewatch/internal/config"
)

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Timeout:        5 * time.Second,
		Retries:        3,
		Backoff:        time.Millisecond,
		UserAgent:      "noticewatch-test/1.0",
		AcceptLanguage: "ko-KR,ko;q=0.9",
	}
}

func TestFetchReturnsDecodedBody(t *testing.T) {
	t.Parallel()

	const page = "<html><body>공지사항 목록</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := New(testHTTPConfig(), NewTransport(), zap.NewNop())
	got, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, page, got)
}

func TestFetchSendsConfiguredHeaders(t *testing.T) {
	t.Parallel()

	var gotUA, gotLang atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		gotLang.Store(r.Header.Get("Accept-Language"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(testHTTPConfig(), NewTransport(), zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "noticewatch-test/1.0", gotUA.Load())
	require.Equal(t, "ko-KR,ko;q=0.9", gotLang.Load())
}

func TestFetchRetriesWithLinearBackoffThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := New(testHTTPConfig(), NewTransport(), zap.NewNop())

	var waits []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	got, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "recovered", got)
	require.Equal(t, int32(3), calls.Load())
	// Linear backoff: unit * 1, unit * 2.
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestFetchExhaustedRetriesReturnsError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(testHTTPConfig(), NewTransport(), zap.NewNop())
	f.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, srv.URL, fetchErr.URL)
	require.Equal(t, int32(3), calls.Load())
}

func TestDecodeBodyDetectsEUCKR(t *testing.T) {
	t.Parallel()

	// Enough Korean text for the detector to lock onto EUC-KR.
	const text = "작성일 2024-01-02 학사공지 장학금 신청 안내 수강신청 변경 기간 안내 졸업요건 확인 요청 공지사항"
	raw, err := korean.EUCKR.NewEncoder().Bytes([]byte(text + text + text))
	require.NoError(t, err)

	decoded := DecodeBody(raw)
	require.Contains(t, decoded, "작성일 2024-01-02")
	require.Contains(t, decoded, "장학금 신청 안내")
}

func TestDecodeBodyFallsBackToLossyUTF8(t *testing.T) {
	t.Parallel()

	// Valid UTF-8 with a stray invalid byte; the result must stay readable.
	raw := append([]byte("공지 목록 "), 0xff)
	raw = append(raw, []byte(" 남은 내용")...)

	decoded := DecodeBody(raw)
	require.Contains(t, decoded, "공지 목록")
	require.Contains(t, decoded, "남은 내용")
}
