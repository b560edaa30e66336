package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teamtasks/internal/services"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type IntegrationsHandler struct {
	links         services.TelegramLinkService
	webhookSecret string
}

func NewIntegrationsHandler(links services.TelegramLinkService, webhookSecret string) *IntegrationsHandler {
	return &IntegrationsHandler{links: links, webhookSecret: webhookSecret}
}

// RequestTelegramLink
// @Summary      Request a Telegram link code
// @Description  Send the code to the bot with /link, or open deepLink. Codes expire after 30 minutes.
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.TelegramLinkCode
// @Failure      401  {object}  map[string]string
// @Router       /users/me/telegram/link [post]
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	code, err := h.links.RequestCode(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, "telegram.request_link", err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// Webhook
// @Summary      Telegram bot webhook
// @Description  Always answers 200 so Telegram does not retry; bad secrets get 401.
// @Tags         Integrations
// @Accept       json
// @Router       /integrations/telegram/webhook [post]
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("[tg][webhook] bind: %v", err)
		c.Status(http.StatusOK)
		return
	}
	h.links.HandleUpdate(c.Request.Context(), update)
	c.Status(http.StatusOK)
}
