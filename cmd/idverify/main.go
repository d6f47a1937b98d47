// Command idverify loads a compiled module and runs the id-leak verifier
// against it.
//
// This generalizes the teacher's cmd/smog/main.go: same idea (a small
// multi-subcommand CLI around a core library — "run", "compile",
// "disassemble", "version" there; "verify" and "disassemble" here, with
// the version printed by urfave/cli's built-in --version flag), but built
// on github.com/urfave/cli instead of hand-rolled
// os.Args switching, since this tool has a real flag (--verbose) where
// smog's dispatch never needed more than positional subcommand names.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/averyl/idverify/internal/idleak"
	"github.com/averyl/idverify/internal/isa"
	"github.com/averyl/idverify/internal/module"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "idverify"
	app.Usage = "static verifier proving object-identity values never escape their function"
	app.Version = version

	app.Commands = []cli.Command{
		verifyCommand,
		disassembleCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "idverify:", err)
		os.Exit(1)
	}
}

var verifyCommand = cli.Command{
	Name:      "verify",
	Usage:     "verify that no object identity value escapes its function",
	ArgsUsage: "<file.idmod>",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "verbose, v", Usage: "log per-function analysis progress"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errors.New("expected exactly one <file.idmod> argument")
		}
		path := c.Args().Get(0)

		mod, err := loadModule(path)
		if err != nil {
			return err
		}

		if c.Bool("verbose") {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return errors.Wrap(err, "build verbose logger")
			}
			defer logger.Sync() //nolint:errcheck
			err = idleak.VerifyModuleWithLogger(mod, idleak.NewZapLogger(logger.Sugar()))
			return reportVerifyResult(mod, err)
		}

		return reportVerifyResult(mod, idleak.VerifyModule(mod))
	},
}

func reportVerifyResult(mod *module.Module, err error) error {
	if err == nil {
		fmt.Printf("%s: OK\n", mod.SelfID)
		return nil
	}
	return err
}

var disassembleCommand = cli.Command{
	Name:      "disassemble",
	Aliases:   []string{"disasm"},
	Usage:     "print a human-readable instruction listing for every function",
	ArgsUsage: "<file.idmod>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errors.New("expected exactly one <file.idmod> argument")
		}
		mod, err := loadModule(c.Args().Get(0))
		if err != nil {
			return err
		}
		disassemble(mod)
		return nil
	},
}

func loadModule(path string) (*module.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	mod, err := module.Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return mod, nil
}

func disassemble(mod *module.Module) {
	fmt.Printf("module %s\n", mod.SelfID)
	for i, def := range mod.FunctionDefs {
		handle, err := mod.FunctionHandleAt(def.Function)
		name := "?"
		if err == nil {
			if n, err := mod.IdentifierAt(handle.Name); err == nil {
				name = n
			}
		}
		fmt.Printf("\nfunction #%d %s\n", i, name)
		if !def.HasBody() {
			fmt.Println("  (native)")
			continue
		}
		for offset, inst := range def.Code.Instructions {
			fmt.Printf("  %4d: %-28s", offset, opcodeMnemonic(inst.Op))
			if hasOperand(inst.Op) {
				fmt.Printf(" %d", inst.Operand)
			}
			fmt.Println()
		}
	}
}

func opcodeMnemonic(op isa.Opcode) string {
	return op.String()
}

func hasOperand(op isa.Opcode) bool {
	switch op {
	case isa.Branch, isa.BrTrue, isa.BrFalse, isa.Nop, isa.Ret, isa.Abort,
		isa.Pop, isa.Dup, isa.FreezeRef, isa.ReadRef, isa.WriteRef,
		isa.Not, isa.Add, isa.Sub, isa.Mul, isa.Div, isa.Mod,
		isa.BitAnd, isa.BitOr, isa.Xor, isa.Shl, isa.Shr, isa.And, isa.Or,
		isa.Eq, isa.Neq, isa.Lt, isa.Gt, isa.Le, isa.Ge,
		isa.CastU8, isa.CastU16, isa.CastU32, isa.CastU64, isa.CastU128, isa.CastU256,
		isa.LdTrue, isa.LdFalse, isa.VecPopBack, isa.VecLen, isa.VecSwap, isa.VecPushBack:
		return false
	default:
		return true
	}
}
