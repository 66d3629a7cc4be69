package telegram

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// TgBot delivers protocol events to subscribed operators and answers a
// couple of chat commands. Subscriptions are held in memory; a restart
// requires subscribers to /start again.
type TgBot struct {
	api           *tgbotapi.BotAPI
	subscriptions map[int]int64
	event         chan string
	send          chan message
}

type message struct {
	ChatID int64
	Text   string
}

func NewBot(apiKey string) (*TgBot, error) {
	tgBot := &TgBot{
		subscriptions: make(map[int]int64),
		event:         make(chan string, 100),
		send:          make(chan message, 100),
	}
	api, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, err
	}
	tgBot.api = api
	return tgBot, nil
}

func (b *TgBot) Start() {
	go b.sendPump()
	go b.eventPump()
	go b.updatesPump()
}

// Notify queues a text for every subscriber.
func (b *TgBot) Notify(text string) {
	select {
	case b.event <- text:
	default:
		log.Println("bot: event queue full, dropping notification")
	}
}

func (b *TgBot) updatesPump() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		log.Printf("bot: error getting updates: %v", err)
		return
	}
	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		switch update.Message.Command() {
		case "start":
			b.subscriptions[update.Message.From.ID] = update.Message.Chat.ID
			msg := fmt.Sprintf("Hello *%v*, you are now subscribed to node events", update.Message.From.UserName)
			b.send <- message{ChatID: update.Message.Chat.ID, Text: msg}
		case "stop":
			delete(b.subscriptions, update.Message.From.ID)
			b.send <- message{ChatID: update.Message.Chat.ID, Text: "Your subscription has been removed"}
		}
	}
}

func (b *TgBot) eventPump() {
	for text := range b.event {
		for _, chatID := range b.subscriptions {
			b.send <- message{ChatID: chatID, Text: text}
		}
	}
}

func (b *TgBot) sendPump() {
	for msg := range b.send {
		m := tgbotapi.NewMessage(msg.ChatID, msg.Text)
		m.ParseMode = "Markdown"
		if _, err := b.api.Send(m); err != nil {
			log.Printf("bot: error sending message: %v", err)
		}
	}
}
