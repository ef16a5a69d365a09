package driver

// Eval compiles and runs text to completion once, printing either a
// parse/compile error, a runtime error, or the program's terminal value —
// matching the am-cli "eval" subcommand's behaviour of always printing
// something, success or failure.
func (d *Driver) Eval(text string) {
	c, opcodes, consts, _, err := d.compile(text)
	if err != nil {
		d.printError(err)
		return
	}
	vm := d.newVM(opcodes, consts, c.GlobalsCount())
	if err := vm.Run(); err != nil {
		d.printError(err)
		return
	}
	_, _ = d.Stdout.Write([]byte(vm.LastPopped().ToDisplayString() + "\n"))
}

// Run reads every source file under path (a file or directory) with the
// given extension, concatenates them, and evaluates the result — the
// "run" subcommand's behaviour.
func (d *Driver) Run(path, ext string) {
	text, err := CollectSource(path, ext)
	if err != nil {
		d.printError(err)
		return
	}
	d.Eval(text)
}
