package phone

// Input 在用户输入时同步维护号码的存储格式和显示格式。
// 不做任何校验，不完整的输入也会被接受并重新格式化。
type Input struct {
	formatter *Formatter

	Storage string
	Display string

	// 每次输入后以存储格式回调
	OnChange func(storage string)
}

// NewInput 用已有的存储值初始化
func NewInput(f *Formatter, storage string, onChange func(string)) *Input {
	if f == nil {
		f = defaultFormatter
	}
	return &Input{
		formatter: f,
		Storage:   f.FormatStorage(storage),
		Display:   f.FormatDisplay(storage),
		OnChange:  onChange,
	}
}

func (in *Input) Type(raw string) {
	in.Display = in.formatter.FormatDisplay(raw)
	in.Storage = in.formatter.FormatStorage(raw)
	if in.OnChange != nil {
		in.OnChange(in.Storage)
	}
}
