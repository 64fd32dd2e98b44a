package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbnail-ai-api/internal/domain/entity"
	apperrors "thumbnail-ai-api/pkg/errors"
)

type fakeAnalyzer struct {
	calls   int
	prompts []string
	images  [][]entity.GeneratedImage
	text    string
	err     error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt string, images []entity.GeneratedImage) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, images)
	return f.text, f.err
}

func img(s string) entity.GeneratedImage {
	return entity.GeneratedImage{Data: []byte(s), MediaType: "image/png"}
}

func TestParseTitles_Fenced(t *testing.T) {
	titles, err := ParseTitles("```json\n[\"A\",\"B\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, titles)
}

func TestParseTitles_BareFenceAndChatter(t *testing.T) {
	titles, err := ParseTitles("Here you go:\n```\n[\"One\", \" Two \"]\n```\nEnjoy!")
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, titles)
}

func TestParseTitles_Malformed(t *testing.T) {
	for _, in := range []string{"not json", "", "```json\n```", "[]", `{"titles":["A"]}`, "[1,2]"} {
		titles, err := ParseTitles(in)
		assert.Error(t, err, in)
		assert.Nil(t, titles, in)
	}
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict(`{"winner":2,"reasoning":"x","comparison":{"clarity":"y"}}`)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Winner)
	assert.Equal(t, "x", v.Reasoning)
	assert.Equal(t, map[string]string{"clarity": "y"}, v.Comparison)
}

func TestParseVerdict_Invalid(t *testing.T) {
	for _, in := range []string{
		"not json",
		`{"winner":3,"reasoning":"x","comparison":{}}`,
		`{"winner":1,"comparison":{}}`,
		`{"winner":1,"reasoning":"x"}`,
		`{"winner":"first","reasoning":"x","comparison":{}}`,
	} {
		_, err := ParseVerdict(in)
		assert.Error(t, err, in)
	}
}

func TestService_InvalidModeNeverCallsModel(t *testing.T) {
	fa := &fakeAnalyzer{text: `["A"]`}
	svc := NewService(fa)

	for _, images := range [][]entity.GeneratedImage{nil, {img("a")}, {img("a"), img("b")}} {
		_, err := svc.Analyze(context.Background(), Request{Mode: "unknown", Images: images})
		assert.ErrorIs(t, err, apperrors.ErrInvalidMode)
		assert.Equal(t, 400, apperrors.AsAppError(err).HTTPStatus)
	}
	// 带空白或大小写不同的模式不是合法模式
	for _, mode := range []string{" titles", "ctr ", "Titles"} {
		_, err := svc.Analyze(context.Background(), Request{Mode: mode, Images: []entity.GeneratedImage{img("a")}})
		assert.ErrorIs(t, err, apperrors.ErrInvalidMode, mode)
	}
	assert.Zero(t, fa.calls)
}

func TestService_Titles(t *testing.T) {
	fa := &fakeAnalyzer{text: "```json\n[\"A\",\"B\",\"C\",\"D\",\"E\"]\n```"}
	svc := NewService(fa)

	out, err := svc.Analyze(context.Background(), Request{Mode: "titles", Images: []entity.GeneratedImage{img("a"), img("b")}, Prompt: "red car"})
	require.NoError(t, err)

	assert.Equal(t, entity.AnalysisModeTitles, out.Kind)
	assert.Len(t, out.Titles, 5)
	require.Len(t, fa.images, 1)
	assert.Len(t, fa.images[0], 1)
	assert.Contains(t, fa.prompts[0], "the context: red car. Return only a JSON array of strings.")
}

func TestService_TitlesDefaultContext(t *testing.T) {
	fa := &fakeAnalyzer{text: `["A"]`}
	svc := NewService(fa)

	_, err := svc.Analyze(context.Background(), Request{Mode: "titles", Images: []entity.GeneratedImage{img("a")}})
	require.NoError(t, err)
	assert.Contains(t, fa.prompts[0], "the context: YouTube video.")
}

func TestService_TitlesMalformed(t *testing.T) {
	svc := NewService(&fakeAnalyzer{text: "not json"})

	out, err := svc.Analyze(context.Background(), Request{Mode: "titles", Images: []entity.GeneratedImage{img("a")}})
	assert.ErrorIs(t, err, apperrors.ErrMalformedAnalysis)
	assert.Nil(t, out.Titles)
}

func TestService_CTR(t *testing.T) {
	fa := &fakeAnalyzer{text: `{"winner":2,"reasoning":"x","comparison":{"clarity":"y"}}`}
	svc := NewService(fa)

	a, b := img("first"), img("second")
	out, err := svc.Analyze(context.Background(), Request{Mode: "ctr", Images: []entity.GeneratedImage{a, b}})
	require.NoError(t, err)

	assert.Equal(t, entity.AnalysisModeCTR, out.Kind)
	require.NotNil(t, out.Verdict)
	assert.Equal(t, 2, out.Verdict.Winner)
	assert.Len(t, out.Verdict.Comparison, 1)
	assert.Equal(t, "y", out.Verdict.Comparison["clarity"])
	assert.Equal(t, []entity.GeneratedImage{a, b}, fa.images[0])
}

func TestService_CTRRequiresTwoImages(t *testing.T) {
	fa := &fakeAnalyzer{}
	svc := NewService(fa)

	for _, images := range [][]entity.GeneratedImage{{img("a")}, {img("a"), img("b"), img("c")}} {
		_, err := svc.Analyze(context.Background(), Request{Mode: "ctr", Images: images})
		assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	}
	assert.Zero(t, fa.calls)
}

func TestService_UpstreamErrorClassified(t *testing.T) {
	svc := NewService(&fakeAnalyzer{err: errors.New("429 Too Many Requests")})

	_, err := svc.Analyze(context.Background(), Request{Mode: "titles", Images: []entity.GeneratedImage{img("a")}})
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
}
