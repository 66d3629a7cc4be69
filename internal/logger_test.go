package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingDatabase struct {
	mu       sync.Mutex
	messages []Data
}

func (r *recordingDatabase) WriteLogMessage(data Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, data)
	return nil
}

func (r *recordingDatabase) ReadLog() (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages, nil
}

func (r *recordingDatabase) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *recordingDatabase) last() *FeatureLogMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return nil
	}
	return r.messages[len(r.messages)-1].(*FeatureLogMessage)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingNotifier) Notify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func await(t *testing.T, check func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !check() {
		if time.Now().After(deadline) {
			t.Fatal("condition never satisfied")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoggerWritesToDatabase(t *testing.T) {
	database := &recordingDatabase{}
	logger := NewLogger()
	logger.SetDatabase(database)

	logger.FeatureEvent("credentials", "de-nod", "party registered")

	await(t, func() bool { return database.count() == 1 })
	message := database.last()
	assert.Equal(t, "credentials", message.Feature)
	assert.Equal(t, "de-nod", message.PartyId)
	assert.Equal(t, "party registered", message.Text)
	assert.Equal(t, "featureLogMessage", message.DataType())
}

func TestLoggerNotifiesOnErrorOnly(t *testing.T) {
	database := &recordingDatabase{}
	notifier := &recordingNotifier{}
	logger := NewLogger()
	logger.SetDatabase(database)
	logger.SetNotifier(notifier)

	logger.Warn("just a warning")
	logger.Error("something broke", assert.AnError)

	await(t, func() bool { return notifier.count() == 1 })
	assert.Equal(t, 2, database.count())
}

func TestLoggerDebugGatedByMode(t *testing.T) {
	database := &recordingDatabase{}
	logger := NewLogger()
	logger.SetDatabase(database)

	logger.Debug("dropped")
	logger.SetDebugMode(true)
	logger.Debug("kept")

	await(t, func() bool { return database.count() == 1 })
	assert.Equal(t, "kept", database.last().Text)
}
