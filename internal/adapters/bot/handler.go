package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
	"autopost-bot/internal/usecase/schedule"
)

// Handler обслуживает вебхук бота.
type Handler struct {
	bot        *tgbotapi.BotAPI
	log        zerolog.Logger
	scheduleUC *schedule.Service
	users      domain.UserRepo
	ledger     domain.TokenLedger
	audit      domain.PublicationLogStore
	jobs       domain.PublishQueue
}

// NewHandler создаёт обработчик.
func NewHandler(
	bot *tgbotapi.BotAPI,
	log zerolog.Logger,
	scheduleUC *schedule.Service,
	users domain.UserRepo,
	ledger domain.TokenLedger,
	audit domain.PublicationLogStore,
	jobs domain.PublishQueue,
) *Handler {
	return &Handler{
		bot:        bot,
		log:        log,
		scheduleUC: scheduleUC,
		users:      users,
		ledger:     ledger,
		audit:      audit,
		jobs:       jobs,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	h.handleMessage(ctx, upd.Message)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		h.reply(msg.Chat.ID, "Не удалось определить пользователя")
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(ctx, msg)
	case strings.HasPrefix(text, "/help"):
		h.reply(msg.Chat.ID, h.buildHelpMessage())
	case strings.HasPrefix(text, "/balance"):
		h.handleBalance(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/schedules"):
		h.handleSchedules(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/toggle"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/toggle"))
		h.handleToggle(ctx, msg.Chat.ID, msg.From.ID, payload)
	case strings.HasPrefix(text, "/slots"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/slots"))
		h.handleSlots(ctx, msg.Chat.ID, msg.From.ID, payload)
	case strings.HasPrefix(text, "/publish_now"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/publish_now"))
		h.handlePublishNow(ctx, msg.Chat.ID, msg.From.ID, payload)
	case strings.HasPrefix(text, "/history"):
		h.handleHistory(ctx, msg.Chat.ID, msg.From.ID)
	default:
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user, err := h.users.UpsertByTGID(ctx, msg.From.ID, msg.From.LanguageCode)
	if err != nil {
		h.reply(msg.Chat.ID, fmt.Sprintf("Ошибка сохранения профиля: %v", err))
		return
	}
	h.reply(msg.Chat.ID, h.buildStartMessage(user.Plan()))
}

func (h *Handler) handleBalance(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start")
		return
	}
	if user.Privileged() {
		h.reply(chatID, "Ваш аккаунт привилегированный: публикации бесплатны.")
		return
	}
	balance, err := h.ledger.GetBalance(ctx, user.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("bot: не удалось получить баланс")
		h.reply(chatID, "Не удалось получить баланс. Попробуйте позже")
		return
	}
	h.reply(chatID, fmt.Sprintf("На балансе %d токенов.", balance))
}

func (h *Handler) handleSchedules(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start")
		return
	}
	schedules, err := h.scheduleUC.List(ctx, user.ID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Ошибка: %v", err))
		return
	}
	if len(schedules) == 0 {
		h.reply(chatID, "У вас пока нет расписаний автопубликаций.")
		return
	}
	var b strings.Builder
	b.WriteString("Ваши расписания:\n")
	for _, s := range schedules {
		b.WriteString(FormatSchedule(s) + "\n")
	}
	b.WriteString("\n/toggle <id> — включить или выключить\n/slots <id> <дни> <времена> — изменить слоты\n/publish_now <id> — опубликовать сейчас")
	h.reply(chatID, b.String())
}

func (h *Handler) handleToggle(ctx context.Context, chatID, tgUserID int64, payload string) {
	user, scheduleID, ok := h.resolveSchedule(ctx, chatID, tgUserID, payload)
	if !ok {
		return
	}
	enabled, err := h.scheduleUC.Toggle(ctx, user.ID, scheduleID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Не удалось переключить расписание: %v", err))
		return
	}
	if enabled {
		h.reply(chatID, fmt.Sprintf("Расписание %d включено.", scheduleID))
	} else {
		h.reply(chatID, fmt.Sprintf("Расписание %d выключено.", scheduleID))
	}
}

func (h *Handler) handleSlots(ctx context.Context, chatID, tgUserID int64, payload string) {
	parts := strings.Fields(payload)
	if len(parts) != 3 {
		h.reply(chatID, "Формат: /slots <id> mon,wed,fri 09:00,15:00")
		return
	}
	user, scheduleID, ok := h.resolveSchedule(ctx, chatID, tgUserID, parts[0])
	if !ok {
		return
	}
	if err := h.scheduleUC.SetSlots(ctx, user.ID, scheduleID, parts[1], parts[2]); err != nil {
		h.reply(chatID, fmt.Sprintf("Не удалось обновить слоты: %v", err))
		return
	}
	h.reply(chatID, fmt.Sprintf("Слоты расписания %d обновлены.", scheduleID))
}

func (h *Handler) handlePublishNow(ctx context.Context, chatID, tgUserID int64, payload string) {
	user, scheduleID, ok := h.resolveSchedule(ctx, chatID, tgUserID, payload)
	if !ok {
		return
	}
	sch, err := h.scheduleUC.Get(ctx, user.ID, scheduleID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Расписание не найдено: %v", err))
		return
	}
	now := time.Now()
	job := domain.PublishJob{
		ID:          uuid.NewString(),
		ScheduleID:  sch.ID,
		CategoryID:  sch.CategoryID,
		Platform:    sch.Platform,
		PlatformID:  sch.PlatformID,
		UserID:      sch.UserID,
		Cause:       domain.PublishCauseManual,
		FiresAt:     now,
		RequestedAt: now,
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Int64("schedule_id", sch.ID).Msg("bot: не удалось поставить ручную публикацию")
		h.reply(chatID, "Не удалось поставить публикацию в очередь. Попробуйте позже")
		return
	}
	h.reply(chatID, "Публикация поставлена в очередь. Итог придёт отдельным сообщением.")
}

func (h *Handler) handleHistory(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start")
		return
	}
	records, err := h.audit.ListPublications(ctx, user.ID, 10)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Ошибка: %v", err))
		return
	}
	if len(records) == 0 {
		h.reply(chatID, "Публикаций пока не было.")
		return
	}
	var b strings.Builder
	b.WriteString("Последние публикации:\n")
	for _, r := range records {
		b.WriteString(FormatRecord(r) + "\n")
	}
	h.reply(chatID, b.String())
}

// resolveSchedule разбирает идентификатор расписания из аргумента
// команды и загружает пользователя.
func (h *Handler) resolveSchedule(ctx context.Context, chatID, tgUserID int64, payload string) (domain.User, int64, bool) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start")
		return domain.User{}, 0, false
	}
	scheduleID, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil || scheduleID <= 0 {
		h.reply(chatID, "Укажите номер расписания, например: /toggle 3")
		return domain.User{}, 0, false
	}
	return user, scheduleID, true
}

func (h *Handler) reply(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("bot: не удалось отправить сообщение")
			return
		}
	}
}

func (h *Handler) buildStartMessage(plan domain.UserPlan) string {
	limitLine := "Количество расписаний не ограничено."
	if plan.ScheduleLimit > 0 {
		limitLine = fmt.Sprintf("Вам доступно до %d расписаний.", plan.ScheduleLimit)
	}
	lines := []string{
		"👋 Добро пожаловать в Autopost Bot!",
		"",
		fmt.Sprintf("Ваш тариф: %s. %s", plan.Name, limitLine),
		"",
		"Бот автоматически публикует материалы по вашим рубрикам",
		"на сайт, в Telegram-каналы, Pinterest и VK.",
		"",
		"Начните с /schedules, полный список команд — /help.",
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) buildHelpMessage() string {
	sections := []string{
		"📖 Команды:",
		"",
		"• /balance — баланс токенов.",
		"• /schedules — список расписаний автопубликаций.",
		"• /toggle 3 — включить или выключить расписание 3.",
		"• /slots 3 mon,wed,fri 09:00,15:00 — изменить дни и времена.",
		"• /publish_now 3 — опубликовать по расписанию 3 прямо сейчас.",
		"• /history — последние публикации и их статусы.",
		"",
		"Стоимость публикации зависит от объёма текста и числа изображений;",
		"при любом сбое списанные токены возвращаются автоматически.",
	}
	return strings.Join(sections, "\n")
}

// FormatSchedule возвращает однострочное описание расписания.
func FormatSchedule(s domain.Schedule) string {
	state := "⏸ выкл"
	if s.Enabled {
		state = "▶️ вкл"
	}
	return fmt.Sprintf("%d. %s → %s (%s) — %s в %s, %s",
		s.ID, platformTitle(s.Platform), s.PlatformID, state,
		strings.Join(s.Days, ","), strings.Join(s.Times, ","), fmt.Sprintf("рубрика %d", s.CategoryID))
}

// FormatRecord возвращает строку истории публикаций.
func FormatRecord(r domain.PublicationRecord) string {
	when := r.CreatedAt.Format("02.01 15:04")
	if r.Status == domain.PublicationStatusSuccess {
		return fmt.Sprintf("✅ %s %s — %s (%d токенов)", when, platformTitle(r.Platform), r.PostURL, r.TokensSpent)
	}
	return fmt.Sprintf("❌ %s %s — %s", when, platformTitle(r.Platform), r.ErrorMessage)
}

func platformTitle(p domain.PlatformType) string {
	switch p {
	case domain.PlatformWebsite:
		return "Сайт"
	case domain.PlatformTelegram:
		return "Telegram"
	case domain.PlatformPinterest:
		return "Pinterest"
	case domain.PlatformVK:
		return "VK"
	default:
		return string(p)
	}
}

// Лимит текста одного сообщения Bot API — 4096 символов.
const messageLimit = 4096

func splitMessage(text string) []string {
	runes := []rune(text)
	if len(runes) <= messageLimit {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		n := messageLimit
		if n > len(runes) {
			n = len(runes)
		}
		cut := n
		// Режем по переводу строки, если он есть недалеко от границы.
		for i := n - 1; i > n-200 && i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	return parts
}
