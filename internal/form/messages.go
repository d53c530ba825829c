package form

// User-facing field messages.  The site is Russian-only.
const (
	msgIntentInvalid   = "Выберите корректный тип запроса."
	msgNameRequired    = "Укажите имя (минимум 2 символа)."
	msgNameTooLong     = "Имя должно быть не длиннее %d символов."
	msgCompanyRequired = "Укажите название компании."
	msgCompanyTooLong  = "Компания должна быть не длиннее %d символов."
	msgEmailRequired   = "Укажите email."
	msgEmailInvalid    = "Введите корректный email."
	msgPhoneRequired   = "Укажите телефон."
	msgPhoneInvalid    = "Введите корректный телефон."
	msgCommentTooLong  = "Комментарий должен быть не длиннее %d символов."
	msgCommentTooShort = "Добавьте чуть больше деталей в комментарий."
	msgPrivacyRequired = "Нужно согласие на обработку персональных данных."
	msgCSRFMissing     = "Не удалось подтвердить защищённую сессию формы."
	msgCSRFStale       = "Сессия формы устарела, обновите страницу и повторите отправку."
	msgHoneypot        = "Некорректные данные формы."
)
