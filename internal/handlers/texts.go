package handlers

const (
	helpText = "👋 Привіт! Я твій персональний помічник з здоров'я.\n" +
		"\n" +
		"🍎 Що я вмію:\n" +
		"  ▸ Записувати їжу: просто напиши що з'їв\n" +
		"     Наприклад: «200г курячої грудки з рисом»\n" +
		"  ▸ 📊 Калорії за день з FatSecret + WHOOP\n" +
		"  ▸ 😴 Дані WHOOP: сон, відновлення, тренування\n" +
		"  ▸ 🗑 Видалити останній запис: «видали останнє»\n" +
		"  ▸ 🎯 Встановити ціль: «встанови ціль 2500 ккал»\n" +
		"  ▸ 🏋️ Записувати тренування: «жим 80кг 3×8»\n" +
		"  ▸ 📓 Вести щоденник: просто напиши як минув день\n" +
		"  ▸ 🎙 Голосові повідомлення теж працюють\n" +
		"\n" +
		"🔗 Підключення сервісів:\n" +
		"  ⌚ WHOOP → /connect_whoop\n" +
		"  🥗 FatSecret → /connect_fatsecret\n" +
		"  🔄 Синхронізувати → /sync\n" +
		"  🏋️ Gym промпт → /gym_prompt\n" +
		"  📓 Щоденник → /journal_time, /journal_off, /journal_on\n" +
		"  🧹 Видалити мої дані → /clear\n" +
		"\n" +
		"⏰ Авто-зведення: 08:00 🌅 та 21:00 🌙\n" +
		"\n" +
		"Просто пиши мені як другу, я розумію 🇺🇦 та 🇬🇧!"

	txtGenericError  = "😔 Щось пішло не так. Спробуй ще раз через хвилинку."
	txtIntentError   = "😔 Виникла помилка при обробці запиту."
	txtNothingToDrop = "🤷 Немає записів для видалення."
	txtNotConfigured = "⚠️ Інтеграція не налаштована на сервері."

	txtConnectWhoop     = "⌚ Підключити WHOOP\n\nСон, відновлення, активність: все буде доступно після авторизації.\n\n👉 "
	txtConnectFatSecret = "🥗 Підключити FatSecret\n\nЩоденник їжі синхронізується автоматично.\n\n👉 "

	txtSyncStarted = "🔄 Перевіряю з'єднання..."
	txtSyncDone    = "✅ Перевірка завершена\n\n"

	txtSyncWhoopExpired      = "⌚ WHOOP: 🔑 сесія закінчилась → /connect_whoop"
	txtSyncWhoopPending      = "⌚ WHOOP: ✅ підключено (дані ще збираються)"
	txtSyncWhoopOff          = "⌚ WHOOP: ⚠️ не підключено"
	txtSyncFatSecretExpired  = "🥗 FatSecret: 🔑 сесія закінчилась → /connect_fatsecret"
	txtSyncFatSecretOff      = "🥗 FatSecret: ⚠️ не підключено"
	txtSyncProviderUnhealthy = " (сервіс тимчасово недоступний)"

	txtClearAsk     = "🧹 Видалити всі твої дані та від'єднати сервіси?"
	txtClearDone    = "🧹 Дані видалено. Щоб почати знову, натисни /start"
	txtClearAborted = "Скасовано."

	txtGoalSet = "🎯 Ціль: %d kcal"

	txtVoiceError = "🎙 Не вдалося обробити голосове повідомлення. Спробуй ще раз."

	txtJournalEmpty    = "📓 Щоденник порожній. Просто напиши як справи!"
	txtJournalNoWeek   = "📓 Немає записів за останній тиждень."
	txtJournalStatus   = "📓 Нагадування щоденника: %s\n  🌅 %s  🌙 %s\n\nЗмінити: /journal_time 09:00 21:00\nВимкнути: /journal_off\nУвімкнути: /journal_on"
	txtJournalNeedTwo  = "Вкажи два часи: /journal_time 10:00 20:00"
	txtJournalBadTime  = "Невірний формат часу. Приклад: /journal_time 10:00 20:00"
	txtJournalTimesSet = "✅ Нагадування: 🌅 %s  🌙 %s"
	txtJournalOff      = "📓 Нагадування щоденника вимкнено.\nУвімкнути: /journal_on"
	txtJournalOn       = "✅ Нагадування увімкнено: 🌅 %s  🌙 %s"

	txtGymPromptShow = "🏋️ Поточний gym промпт:\n%s\n\nЩоб змінити: /gym_prompt <текст>\nПриклад: /gym_prompt Я тренуюсь для пауерліфтингу, фокус на базових вправах"
	txtGymPromptSet  = "✅ Gym промпт встановлено:\n"

	btnConnectWhoop     = "⌚ WHOOP"
	btnConnectFatSecret = "🥗 FatSecret"
	btnSync             = "🔄 Синхронізувати"
	btnClearYes         = "Так, видалити"
	btnClearNo          = "Скасувати"
)

// callback payloads
const (
	cbConnectWhoop     = "cmd:connect_whoop"
	cbConnectFatSecret = "cmd:connect_fatsecret"
	cbSync             = "cmd:sync"
	cbClearYes         = "clear:yes"
	cbClearNo          = "clear:no"
)
