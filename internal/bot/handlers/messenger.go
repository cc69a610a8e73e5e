package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/less-homeless/shelterbot/internal/database"
)

// Sender posts animal cards to broadcast channels. It satisfies the
// messenger interface the broadcast dispatcher expects.
type Sender struct {
	bot         *bot.Bot
	fallbackURL string
	logger      *slog.Logger
}

// NewSender creates a Sender.
func NewSender(b *bot.Bot, fallbackURL string, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		bot:         b,
		fallbackURL: fallbackURL,
		logger:      logger.With("component", "channel_sender"),
	}
}

// SendAnimalPhoto posts the animal's photo with the card as its caption.
func (s *Sender) SendAnimalPhoto(ctx context.Context, chatID string, animal database.Animal) error {
	_, err := s.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:      chatID,
		Photo:       &models.InputFileString{Data: animal.PhotoURL},
		Caption:     animalCard(animal),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: cardSiteKeyboard(animal, s.fallbackURL),
	})
	if err != nil {
		return fmt.Errorf("failed to send photo to %s: %w", chatID, err)
	}
	return nil
}

// SendAnimalText posts the card as plain HTML text, used when the photo
// URL is missing or rejected by Telegram.
func (s *Sender) SendAnimalText(ctx context.Context, chatID string, animal database.Animal) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        animalCard(animal),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: cardSiteKeyboard(animal, s.fallbackURL),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", chatID, err)
	}
	return nil
}

// cardSiteKeyboard is the channel variant of the card keyboard: only the
// site link, no list navigation.
func cardSiteKeyboard(animal database.Animal, fallback string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🌐 Open the site", URL: animalSiteURL(animal, fallback)}},
		},
	}
}
