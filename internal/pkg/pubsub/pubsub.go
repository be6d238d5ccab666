package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelJobProgress = "ai_job_progress"
)

// 推送给前端的消息类型：过程中为 progress，完成或失败为 finished
const (
	TypeJobProgress = "ai_job_progress"
	TypeJobFinished = "ai_job_finished"
)

// 任务类型，与 model.AIJob.Kind 取值一致
const (
	KindSuggestions = "suggestions"
	KindCoverLetter = "cover_letter"
)

// 终态
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProgressMessage AI 任务进度
type ProgressMessage struct {
	Type       string `json:"type"`
	UserID     int64  `json:"user_id"`
	AnalysisID int64  `json:"analysis_id"`
	JobID      int64  `json:"job_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Step       string `json:"step"`
	Progress   int    `json:"progress"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// 进度阶段
const (
	StepQueued     = "queued"
	StepReading    = "reading"
	StepGenerating = "generating"
	StepSaving     = "saving"
	StepDone       = "done"
)

var StepProgress = map[string]int{
	StepQueued:     5,
	StepReading:    20,
	StepGenerating: 50,
	StepSaving:     90,
	StepDone:       100,
}

var StepMessages = map[string]string{
	StepQueued:     "Waiting in queue",
	StepReading:    "Reading resume",
	StepGenerating: "Generating content",
	StepSaving:     "Saving result",
	StepDone:       "Completed",
}

// kindStepMessages 按任务类型覆盖默认文案
var kindStepMessages = map[string]map[string]string{
	KindSuggestions: {
		StepReading:    "Reading resume and job description",
		StepGenerating: "Generating improvement suggestions",
		StepSaving:     "Saving suggestions",
		StepDone:       "Suggestions ready",
	},
	KindCoverLetter: {
		StepReading:    "Reading resume and job description",
		StepGenerating: "Writing cover letter",
		StepSaving:     "Saving cover letter",
		StepDone:       "Cover letter ready",
	},
}

// StepMessage 返回某类任务在某阶段的文案
func StepMessage(kind, step string) string {
	if msg, ok := kindStepMessages[kind][step]; ok {
		return msg
	}
	return StepMessages[step]
}

// Finished 任务是否已到终态
func (m *ProgressMessage) Finished() bool {
	return m.Status == StatusCompleted || m.Status == StatusFailed
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress 发布进度消息，未填写的进度和文案按阶段补齐
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	msg.Type = TypeJobProgress
	if msg.Finished() {
		msg.Type = TypeJobFinished
	}

	if msg.Progress == 0 && msg.Step != "" {
		if progress, ok := StepProgress[msg.Step]; ok {
			msg.Progress = progress
		}
	}
	if msg.Message == "" && msg.Step != "" {
		msg.Message = StepMessage(msg.Kind, msg.Step)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelJobProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelJobProgress)
	defer pubsub.Close()

	// 等待订阅确认，保证之后发布的消息不会丢
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue
			}

			handler(&progressMsg)
		}
	}
}
