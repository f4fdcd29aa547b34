package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestToPortMessage(t *testing.T) {
	msg := &tgbotapi.Message{
		MessageID: 15,
		Chat:      &tgbotapi.Chat{ID: 100500, Type: "private"},
		From: &tgbotapi.User{
			ID:        100500,
			FirstName: "Ivan",
			LastName:  "Petrov",
			UserName:  "ipetrov",
		},
		Text: "/signup",
	}

	in := toPortMessage(msg)
	assert.Equal(t, int64(100500), in.ChatID)
	assert.Equal(t, "private", in.ChatType)
	assert.Equal(t, 15, in.MessageID)
	assert.Equal(t, int64(100500), in.UserID)
	assert.Equal(t, "Ivan", in.FirstName)
	assert.Equal(t, "Petrov", in.LastName)
	assert.Equal(t, "ipetrov", in.Username)
	assert.Equal(t, "/signup", in.Text)
	assert.True(t, in.Private())
}

func TestToPortMessageGroupChat(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: -42, Type: "supergroup"},
		From: &tgbotapi.User{ID: 7},
	}

	in := toPortMessage(msg)
	assert.False(t, in.Private())
	assert.True(t, in.Group())
}
