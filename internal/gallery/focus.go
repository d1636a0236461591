package gallery

import "strconv"

// Элементы управления просмотрщика, между которыми ходит фокус
const (
	ControlClose = "close"
	ControlPrev  = "prev"
	ControlNext  = "next"
)

// ThumbControl имя кнопки i-й миниатюры
func ThumbControl(i int) string {
	return "thumb-" + strconv.Itoa(i)
}

// FocusTrap удерживает фокус внутри списка элементов управления
type FocusTrap struct {
	Controls []string
}

// NewFocusTrap собирает порядок обхода для группы из n элементов:
// закрыть, назад, вперед, затем миниатюры
func NewFocusTrap(n int) FocusTrap {
	controls := []string{ControlClose, ControlPrev, ControlNext}
	for i := 0; i < n; i++ {
		controls = append(controls, ThumbControl(i))
	}
	return FocusTrap{Controls: controls}
}

// Move возвращает элемент, получающий фокус после Tab (backward - Shift+Tab).
// С последнего элемента фокус переходит на первый и наоборот. Если current
// вне ловушки, фокус попадает на первый (или последний) элемент.
func (f FocusTrap) Move(current string, backward bool) string {
	n := len(f.Controls)
	if n == 0 {
		return current
	}

	pos := -1
	for i, c := range f.Controls {
		if c == current {
			pos = i
			break
		}
	}

	switch {
	case pos < 0 && backward:
		return f.Controls[n-1]
	case pos < 0:
		return f.Controls[0]
	case backward:
		return f.Controls[(pos-1+n)%n]
	default:
		return f.Controls[(pos+1)%n]
	}
}
