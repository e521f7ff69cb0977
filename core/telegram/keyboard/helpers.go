package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is an inline callback button. Unique routes the callback, Data is its payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// RemoveKeyboard hides any reply keyboard shown to the user.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a one-time reply keyboard, one row per slice.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// InlineGrid lays buttons out left to right with at most columns per row.
// Values below 1 put every button on its own row.
func InlineGrid(buttons []InlineBtn, columns int) *tele.ReplyMarkup {
	if columns < 1 {
		columns = 1
	}
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, (len(buttons)+columns-1)/columns)
	for start := 0; start < len(buttons); start += columns {
		end := min(start+columns, len(buttons))
		row := make([]tele.InlineButton, 0, end-start)
		for _, b := range buttons[start:end] {
			row = append(row, *markup.Data(b.Text, b.Unique, b.Data).Inline())
		}
		rows = append(rows, row)
	}
	markup.InlineKeyboard = rows
	return markup
}
