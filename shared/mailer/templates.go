package mailer

import (
	"fmt"
	"html"
)

type template struct {
	subject string
	body    string
}

func (t template) render(value string) string {
	return fmt.Sprintf(t.body, html.EscapeString(value))
}

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="color: #3b82f6; text-align: center;">GlucoSense</h1>
	%s
</div>`

var verificationTemplates = map[string]template{
	"uz": {
		subject: "GlucoSense - Tasdiqlash kodi",
		body: fmt.Sprintf(layout, `<h2>Tasdiqlash kodi</h2>
	<p>Tizimga kirish uchun quyidagi kodni kiriting:</p>
	<p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">
	%s
	</p>
	<p>Bu kod 10 daqiqa amal qiladi</p>
	<p>Agar siz bu kodni so'ramagan bo'lsangiz, bu xabarni e'tiborsiz qoldiring.</p>`),
	},
	"ru": {
		subject: "GlucoSense - Код подтверждения",
		body: fmt.Sprintf(layout, `<h2>Код подтверждения</h2>
	<p>Введите следующий код для входа в систему:</p>
	<p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">
	%s
	</p>
	<p>Код действителен в течение 10 минут</p>
	<p>Если вы не запрашивали этот код, проигнорируйте это сообщение.</p>`),
	},
	"en": {
		subject: "GlucoSense - Verification Code",
		body: fmt.Sprintf(layout, `<h2>Verification Code</h2>
	<p>Enter the following code to sign in:</p>
	<p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">
	%s
	</p>
	<p>This code will expire in 10 minutes</p>
	<p>If you didn't request this code, please ignore this message.</p>`),
	},
}

var welcomeTemplates = map[string]template{
	"uz": {
		subject: "GlucoSense'ga xush kelibsiz!",
		body: fmt.Sprintf(layout, `<h2>Salom, %s!</h2>
	<p>GlucoSense'ga xush kelibsiz. Glyukoza darajasini kuzatishni boshlashingiz mumkin.</p>`),
	},
	"ru": {
		subject: "Добро пожаловать в GlucoSense!",
		body: fmt.Sprintf(layout, `<h2>Привет, %s!</h2>
	<p>Добро пожаловать в GlucoSense. Вы можете начать отслеживать уровень глюкозы.</p>`),
	},
	"en": {
		subject: "Welcome to GlucoSense!",
		body: fmt.Sprintf(layout, `<h2>Hello, %s!</h2>
	<p>Welcome to GlucoSense. You can now start tracking your glucose levels.</p>`),
	},
}

func verificationTemplate(language string) template {
	if t, ok := verificationTemplates[language]; ok {
		return t
	}
	return verificationTemplates["en"]
}

func welcomeTemplate(language string) template {
	if t, ok := welcomeTemplates[language]; ok {
		return t
	}
	return welcomeTemplates["en"]
}
