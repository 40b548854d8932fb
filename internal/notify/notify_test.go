package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/types"
)

func sampleRecord() *types.FeedbackRecord {
	return &types.FeedbackRecord{
		ID:          "fb-1",
		InterviewID: "iv-1",
		UserID:      "u-1",
		TotalScore:  72,
		CategoryScores: []types.CategoryScore{
			{Name: "Communication Skills", Score: 80},
			{Name: "Technical Knowledge", Score: 64},
		},
		Strengths:           []string{"clear answers"},
		AreasForImprovement: []string{"depth on databases"},
		FinalAssessment:     "Solid overall.",
	}
}

func TestRegistryFansOut(t *testing.T) {
	reg := NewRegistry()
	var calls []string
	reg.Register("a", func(_ context.Context, rec *types.FeedbackRecord) error {
		calls = append(calls, "a:"+string(rec.ID))
		return nil
	})
	reg.Register("b", func(_ context.Context, rec *types.FeedbackRecord) error {
		calls = append(calls, "b:"+string(rec.ID))
		return nil
	})

	require.NoError(t, reg.FeedbackReady(context.Background(), sampleRecord()))
	assert.ElementsMatch(t, []string{"a:fb-1", "b:fb-1"}, calls)
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestRegistryJoinsFailures(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	delivered := false
	reg.Register("broken", func(context.Context, *types.FeedbackRecord) error { return boom })
	reg.Register("ok", func(context.Context, *types.FeedbackRecord) error {
		delivered = true
		return nil
	})

	err := reg.FeedbackReady(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "deliver broken")
	assert.True(t, delivered)
}

func TestRegistryEmpty(t *testing.T) {
	assert.NoError(t, NewRegistry().FeedbackReady(context.Background(), sampleRecord()))
}

type fakeSender struct {
	sent     []tgbotapi.MessageConfig
	failMode string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.failMode != "" && msg.ParseMode == f.failMode {
		return tgbotapi.Message{}, errors.New("bad request")
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramNotify(t *testing.T) {
	fs := &fakeSender{}
	tg := &Telegram{bot: fs, chatID: 42, baseURL: "https://app.example"}

	require.NoError(t, tg.Notify(context.Background(), sampleRecord()))
	require.Len(t, fs.sent, 1)
	assert.Equal(t, int64(42), fs.sent[0].ChatID)
	assert.Contains(t, fs.sent[0].Text, "(72/100)")
	assert.Contains(t, fs.sent[0].Text, "https://app.example/interview/iv-1/feedback")
}

func TestTelegramFallsBackToPlainText(t *testing.T) {
	fs := &fakeSender{failMode: tgbotapi.ModeMarkdown}
	tg := &Telegram{bot: fs, chatID: 42}

	require.NoError(t, tg.Notify(context.Background(), sampleRecord()))
	require.Len(t, fs.sent, 2)
	assert.Equal(t, "", fs.sent[1].ParseMode)
}

func TestTelegramPlainTextFailure(t *testing.T) {
	tg := &Telegram{bot: alwaysFail{}, chatID: 42}

	err := tg.Notify(context.Background(), sampleRecord())
	assert.ErrorContains(t, err, "send message")
}

type alwaysFail struct{}

func (alwaysFail) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, errors.New("unreachable")
}

func TestFormatFeedback(t *testing.T) {
	text := FormatFeedback(sampleRecord(), "")
	assert.Contains(t, text, "- Communication Skills: 80")
	assert.Contains(t, text, "Strengths:\n- clear answers")
	assert.Contains(t, text, "Areas for improvement:\n- depth on databases")
	assert.True(t, strings.HasSuffix(text, "Solid overall.\n"))
}

func TestSplitMessage(t *testing.T) {
	assert.Len(t, splitMessage("short"), 1)

	parts := splitMessage(strings.Repeat("a", 5000))
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], maxTelegramMessage)
}
