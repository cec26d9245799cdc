package webhook

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type messages struct {
	welcome string // %s first name
	help    string
	status  string
	faq     string
	support string // %s support contact

	loginConfirmed string // %s first name
	loginExpired   string
	loginNotFound  string
	loginFailed    string // %s support contact

	openAppButton string
	faqButton     string
	supportButton string

	faqOpened      string
	unknownCommand string
	noChat         string
	noData         string
	callbackFailed string
	defaultName    string
}

var english = messages{
	welcome: "👋 Hi, %s!\n\n" +
		"Use this bot to sign in on the website without a password.\n\n" +
		"Open the app with the button below 👇",
	help: "🤖 *Bot commands:*\n\n" +
		"/start - Start working with the bot\n" +
		"/help - Show this help\n" +
		"/status - Check your account status\n" +
		"/faq - Frequently asked questions\n" +
		"/support - Contact support",
	status: "📊 *Account status*\n\nOpen the app to see your account details.",
	faq: "📚 *Frequently asked questions*\n\n" +
		"*Q: How do I sign in on the website?*\n" +
		"A: Press \"Log in with Telegram\" on the website and confirm in this chat.\n\n" +
		"*Q: How long is a login link valid?*\n" +
		"A: 5 minutes. Request a new one on the website if it expires.\n\n" +
		"*Q: Do you see my Telegram password?*\n" +
		"A: No. We only receive your public profile.",
	support: "💬 To contact support write to %s",

	loginConfirmed: "✅ *Login confirmed!*\n\n" +
		"Hi, %s! You are now signed in.\n\n" +
		"🌐 Return to the website to continue.",
	loginExpired: "❌ *Login link expired*\n\n" +
		"The login link is only valid for 5 minutes.\n\n" +
		"Please return to the website and request a new link.",
	loginNotFound: "❌ *Login link is invalid*\n\n" +
		"The login link was not found or has already been used.\n\n" +
		"Please return to the website and request a new link.",
	loginFailed: "❌ *Login failed*\n\n" +
		"We could not confirm your login. Please request a new link on the website.\n\n" +
		"If the problem persists contact %s",

	openAppButton: "🚀 Open app",
	faqButton:     "❓ FAQ",
	supportButton: "💬 Support",

	faqOpened:      "FAQ opened",
	unknownCommand: "Unknown command",
	noChat:         "Error: could not determine the chat",
	noData:         "Error: no data received",
	callbackFailed: "Something went wrong, please try again",
	defaultName:    "there",
}

var russian = messages{
	welcome: "👋 Привет, %s!\n\n" +
		"С помощью этого бота можно войти на сайт без пароля.\n\n" +
		"Откройте приложение кнопкой ниже 👇",
	help: "🤖 *Команды бота:*\n\n" +
		"/start - Начать работу с ботом\n" +
		"/help - Показать эту справку\n" +
		"/status - Проверить статус аккаунта\n" +
		"/faq - Частые вопросы\n" +
		"/support - Связаться с поддержкой",
	status: "📊 *Статус аккаунта*\n\nОткройте приложение, чтобы увидеть данные аккаунта.",
	faq: "📚 *Часто задаваемые вопросы*\n\n" +
		"*Q: Как войти на сайт?*\n" +
		"A: Нажмите «Войти через Telegram» на сайте и подтвердите вход в этом чате.\n\n" +
		"*Q: Сколько действует ссылка для входа?*\n" +
		"A: 5 минут. Если ссылка истекла, запросите новую на сайте.\n\n" +
		"*Q: Видите ли вы мой пароль Telegram?*\n" +
		"A: Нет. Мы получаем только публичный профиль.",
	support: "💬 Для связи с поддержкой напишите: %s",

	loginConfirmed: "✅ *Авторизация подтверждена!*\n\n" +
		"Привет, %s! Вы успешно вошли в свой аккаунт.\n\n" +
		"🌐 Вернитесь на сайт, чтобы продолжить.",
	loginExpired: "❌ *Ссылка для входа истекла*\n\n" +
		"Срок действия ссылки для авторизации истёк (5 минут).\n\n" +
		"Пожалуйста, вернитесь на сайт и запросите новую ссылку для входа.",
	loginNotFound: "❌ *Ссылка недействительна*\n\n" +
		"Ссылка для входа не найдена или уже была использована.\n\n" +
		"Пожалуйста, вернитесь на сайт и запросите новую ссылку.",
	loginFailed: "❌ *Ошибка авторизации*\n\n" +
		"Не удалось подтвердить вход. Попробуйте запросить новую ссылку на сайте.\n\n" +
		"Если ошибка повторяется, напишите %s",

	openAppButton: "🚀 Открыть приложение",
	faqButton:     "❓ FAQ",
	supportButton: "💬 Поддержка",

	faqOpened:      "FAQ открыт",
	unknownCommand: "Неизвестная команда",
	noChat:         "Ошибка: не удалось определить чат",
	noData:         "Ошибка: данные не получены",
	callbackFailed: "Произошла ошибка при обработке запроса",
	defaultName:    "пользователь",
}

// messagesFor picks the catalog from a Telegram language_code such as "ru" or "en-US"
func messagesFor(languageCode string) messages {
	if strings.HasPrefix(strings.ToLower(languageCode), "ru") {
		return russian
	}
	return english
}

func (m messages) name(firstName string) string {
	if firstName == "" {
		return m.defaultName
	}
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, firstName)
}

func (m messages) welcomeFor(firstName string) string {
	return fmt.Sprintf(m.welcome, m.name(firstName))
}

func (m messages) confirmedFor(firstName string) string {
	return fmt.Sprintf(m.loginConfirmed, m.name(firstName))
}
