package mir

import (
	"fmt"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func (l *funcLowerer) lowerBlock(b *ast.Block) error {
	if b == nil {
		return nil
	}
	l.blockStack = append(l.blockStack, b)
	defer func() { l.blockStack = l.blockStack[:len(l.blockStack)-1] }()

	for _, st := range b.Stmts {
		if l.curBlock().Terminated() {
			// Statements after a guaranteed exit never execute.
			return nil
		}
		if err := l.lowerStmt(st); err != nil {
			return err
		}
	}

	// Closing brace: discharge this scope's obligations in declaration
	// order on the fallthrough path.
	if !l.curBlock().Terminated() {
		for _, ob := range l.sema.BlockReleases[b] {
			l.emitRelease(ob)
		}
	}
	return nil
}

func (l *funcLowerer) lowerStmt(st *ast.Stmt) error {
	switch st.Kind {
	case ast.StmtLet:
		data, ok := st.Data.(ast.LetData)
		if !ok {
			return fmt.Errorf("mir: let: unexpected payload %T", st.Data)
		}
		sym := l.sema.LetSyms[st]
		ty := types.NoTypeID
		if s := l.syms.Table.Symbols.Get(sym); s != nil {
			ty = l.substType(s.Type)
		}
		op, err := l.lowerExpr(data.Value, true)
		if err != nil {
			return err
		}
		local := l.ensureLocal(sym, data.Name, ty, st.Span)
		l.emit(&Instr{
			Kind: InstrAssign,
			Assign: AssignInstr{
				Dst: Place{Local: local},
				Src: RValue{Kind: RValueUse, Use: op},
			},
		})
		return nil

	case ast.StmtExpr:
		data, ok := st.Data.(ast.ExprStmtData)
		if !ok {
			return fmt.Errorf("mir: expr stmt: unexpected payload %T", st.Data)
		}
		_, err := l.lowerExpr(data.Expr, false)
		return err

	case ast.StmtReturn:
		data, ok := st.Data.(ast.ReturnData)
		if !ok {
			return fmt.Errorf("mir: return: unexpected payload %T", st.Data)
		}
		var value Operand
		hasValue := false
		if data.Value != nil {
			op, err := l.lowerExpr(data.Value, true)
			if err != nil {
				return err
			}
			value = op
			hasValue = !l.isUnitType(op.Type)
		}
		// The result is computed before the scopes unwind.
		for _, ob := range l.sema.ReturnReleases[st] {
			l.emitRelease(ob)
		}
		l.setTerm(&Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: hasValue, Value: value}})
		return nil

	case ast.StmtIf:
		data, ok := st.Data.(ast.IfData)
		if !ok {
			return fmt.Errorf("mir: if: unexpected payload %T", st.Data)
		}
		return l.lowerIf(data)

	case ast.StmtWhile:
		data, ok := st.Data.(ast.WhileData)
		if !ok {
			return fmt.Errorf("mir: while: unexpected payload %T", st.Data)
		}
		return l.lowerWhile(data)

	case ast.StmtMatch:
		data, ok := st.Data.(ast.MatchStmtData)
		if !ok {
			return fmt.Errorf("mir: match stmt: unexpected payload %T", st.Data)
		}
		_, err := l.lowerMatchExpr(data.Match, false)
		return err

	case ast.StmtBreak:
		ctx, err := l.topLoop("break")
		if err != nil {
			return err
		}
		l.releaseLoopScopes(ctx)
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: ctx.breakTarget}})
		return nil

	case ast.StmtContinue:
		ctx, err := l.topLoop("continue")
		if err != nil {
			return err
		}
		l.releaseLoopScopes(ctx)
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: ctx.continueTarget}})
		return nil

	default:
		return fmt.Errorf("mir: unexpected statement kind %v", st.Kind)
	}
}

func (l *funcLowerer) topLoop(what string) (loopCtx, error) {
	if len(l.loopStack) == 0 {
		return loopCtx{}, fmt.Errorf("mir: %s outside of a loop survived checking", what)
	}
	return l.loopStack[len(l.loopStack)-1], nil
}

// releaseLoopScopes discharges obligations of every scope between the jump
// site and the loop body, innermost first. emitRelease skips bindings not
// yet materialized on this path.
func (l *funcLowerer) releaseLoopScopes(ctx loopCtx) {
	for i := len(l.blockStack) - 1; i >= ctx.blockDepth; i-- {
		for _, ob := range l.sema.BlockReleases[l.blockStack[i]] {
			l.emitRelease(ob)
		}
	}
}

func (l *funcLowerer) lowerIf(data ast.IfData) error {
	cond, err := l.lowerExpr(data.Cond, false)
	if err != nil {
		return err
	}

	thenBB := l.newBlock()
	elseBB := l.newBlock()
	joinBB := l.newBlock()
	l.setTerm(&Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: thenBB, Else: elseBB}})

	l.startBlock(thenBB)
	if err := l.lowerBlock(data.Then); err != nil {
		return err
	}
	if !l.curBlock().Terminated() {
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: joinBB}})
	}

	l.startBlock(elseBB)
	if data.Else != nil {
		if err := l.lowerBlock(data.Else); err != nil {
			return err
		}
	}
	if !l.curBlock().Terminated() {
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: joinBB}})
	}

	l.startBlock(joinBB)
	return nil
}

func (l *funcLowerer) lowerWhile(data ast.WhileData) error {
	headerBB := l.newBlock()
	l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: headerBB}})

	l.startBlock(headerBB)
	cond, err := l.lowerExpr(data.Cond, false)
	if err != nil {
		return err
	}
	bodyBB := l.newBlock()
	exitBB := l.newBlock()
	l.setTerm(&Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: bodyBB, Else: exitBB}})

	l.loopStack = append(l.loopStack, loopCtx{
		breakTarget:    exitBB,
		continueTarget: headerBB,
		blockDepth:     len(l.blockStack),
	})
	l.startBlock(bodyBB)
	if err := l.lowerBlock(data.Body); err != nil {
		return err
	}
	l.loopStack = l.loopStack[:len(l.loopStack)-1]
	if !l.curBlock().Terminated() {
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: headerBB}})
	}

	l.startBlock(exitBB)
	return nil
}
