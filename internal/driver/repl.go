package driver

import (
	"bufio"
	"io"
	"strings"
)

// REPL reads lines from in, accumulating each into one growing source
// buffer — so a `let` on one line stays visible to a `request`/`test` on a
// later line, matching original_source's line-accumulating REPL rather
// than re-parsing every line standalone. The literal line "exit" ends the
// session; blank lines are skipped. No prompt is printed.
func (d *Driver) REPL(in io.Reader) {
	scanner := bufio.NewScanner(in)
	var source strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if line == "exit" {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		source.WriteString(line)
		source.WriteByte('\n')

		c, opcodes, consts, _, err := d.compile(source.String())
		if err != nil {
			d.printError(err)
			continue
		}
		vm := d.newVM(opcodes, consts, c.GlobalsCount())
		if err := vm.Run(); err != nil {
			d.printError(err)
			continue
		}
		_, _ = d.Stdout.Write([]byte(vm.LastPopped().ToDisplayString() + "\n"))
	}
}
