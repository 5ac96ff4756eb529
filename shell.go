package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-desk/library"
)

// console reads prompted lines and passwords from stdin. All reads share one
// scanner so piped input is not lost between prompts.
type console struct {
	sc *bufio.Scanner
}

var stdin = &console{sc: bufio.NewScanner(os.Stdin)}

var errInputClosed = errors.New("input closed")

// line prints prompt and returns the next trimmed line. ok is false at EOF.
func (c *console) line(prompt string) (string, bool) {
	fmt.Print(prompt)
	if !c.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.sc.Text()), true
}

// readPassword securely reads a password with masking. Piped input falls
// back to reading a plain line.
func (c *console) readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		s, ok := c.line(prompt)
		if !ok {
			return "", errInputClosed
		}
		return s, nil
	}
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return string(bytePassword), nil
}

func (c *console) int64(prompt string) (int64, bool) {
	s, ok := c.line(prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", s)
		return 0, false
	}
	return id, true
}

// amount reads a decimal. An empty line yields def.
func (c *console) amount(prompt string, def decimal.Decimal) (decimal.Decimal, bool) {
	s, ok := c.line(prompt)
	if !ok {
		return decimal.Zero, false
	}
	if s == "" {
		return def, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		fmt.Printf("Invalid amount: %s\n", s)
		return decimal.Zero, false
	}
	return d, true
}

// show prints the outcome of an operation and reports whether it succeeded.
func show[T any](r library.Result[T]) bool {
	if r.Success {
		fmt.Println(r.Message)
	} else {
		fmt.Printf("Error: %s\n", r.Message)
	}
	return r.Success
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}

type shell struct {
	ctx  context.Context
	mgr  *library.LibraryManager
	in   *console
	sess *library.Session
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive desk console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sh := &shell{ctx: cmd.Context(), mgr: a.mgr, in: stdin}
			sh.run()
			return nil
		},
	}
}

var shellHelp = []string{
	"Available commands:",
	"  Books: list books, available books, search book, add book, update book, remove book",
	"  Members: list members, list students, list faculty, add student, add faculty, update member,",
	"           deactivate member, activate member, my account",
	"  Circulation: issue, return, loans, active loans, overdue loans",
	"  Fines: fines, pending fines, pay fine, waive fine",
	"  Accounts: users, set role, logout",
	"  System: stats, help, exit",
}

func (sh *shell) run() {
	fmt.Println("Welcome to the Library Desk!")
	for {
		if sh.sess == nil && !sh.login() {
			return
		}

		cmd, ok := sh.in.line("\n> ")
		if !ok {
			return
		}
		if sh.ctx.Err() != nil {
			return
		}

		switch cmd {
		case "":
		case "help":
			fmt.Println(strings.Join(shellHelp, "\n"))
		case "list books":
			sh.printBooks(sh.mgr.ListBooks(sh.ctx, sh.sess, library.BookFilter{}))
		case "available books":
			sh.printBooks(sh.mgr.ListAvailableBooks(sh.ctx, sh.sess))
		case "search book":
			if q, ok := sh.in.line("Search (title, author, ISBN or code): "); ok {
				sh.printBooks(sh.mgr.SearchBooks(sh.ctx, sh.sess, q))
			}
		case "add book":
			sh.handleAddBook()
		case "update book":
			sh.handleUpdateBook()
		case "remove book":
			if id, ok := sh.in.int64("Book ID: "); ok {
				show(sh.mgr.DeactivateBook(sh.ctx, sh.sess, id))
			}
		case "list members":
			sh.printMembers(sh.mgr.ListMembers(sh.ctx, sh.sess, library.MemberFilter{}))
		case "list students":
			sh.printMembers(sh.mgr.ListStudents(sh.ctx, sh.sess))
		case "list faculty":
			sh.printMembers(sh.mgr.ListFaculty(sh.ctx, sh.sess))
		case "add student":
			sh.handleAddMember(library.KindStudent)
		case "add faculty":
			sh.handleAddMember(library.KindFaculty)
		case "update member":
			sh.handleUpdateMember()
		case "deactivate member", "activate member":
			if id, ok := sh.in.int64("Member ID: "); ok {
				show(sh.mgr.SetMemberActive(sh.ctx, sh.sess, id, cmd == "activate member"))
			}
		case "my account":
			sh.handleMyAccount()
		case "issue":
			sh.handleIssue()
		case "return":
			if id, ok := sh.in.int64("Loan ID: "); ok {
				show(sh.mgr.ReturnBook(sh.ctx, sh.sess, id, ""))
			}
		case "loans":
			sh.printLoans(library.IssuesAll)
		case "active loans":
			sh.printLoans(library.IssuesActive)
		case "overdue loans":
			sh.printLoans(library.IssuesOverdue)
		case "fines":
			sh.printFines(false)
		case "pending fines":
			sh.printFines(true)
		case "pay fine":
			sh.handlePayFine()
		case "waive fine":
			sh.handleWaiveFine()
		case "users":
			sh.printUsers()
		case "set role":
			sh.handleSetRole()
		case "stats":
			if st, err := sh.mgr.Statistics(sh.ctx, sh.sess).Unwrap(); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				printStatistics(st)
			}
		case "logout":
			show(sh.mgr.Logout(sh.sess))
			sh.sess = nil
		case "exit":
			sh.mgr.Logout(sh.sess)
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for the list of commands.")
		}
	}
}

// login loops until a session is started. It returns false at end of input.
func (sh *shell) login() bool {
	for {
		username, ok := sh.in.line("\nUsername: ")
		if !ok {
			return false
		}
		password, err := sh.in.readPassword("Password: ")
		if err != nil {
			return false
		}
		res := sh.mgr.Login(sh.ctx, username, password)
		if show(res) {
			sh.sess = res.Value
			fmt.Println(strings.Join(shellHelp, "\n"))
			return true
		}
	}
}

func (sh *shell) handleAddBook() {
	var in library.NewBook
	var ok bool
	if in.ISBN, ok = sh.in.line("ISBN: "); !ok {
		return
	}
	if in.Title, ok = sh.in.line("Title: "); !ok {
		return
	}
	if in.Author, ok = sh.in.line("Author: "); !ok {
		return
	}
	if in.Publisher, ok = sh.in.line("Publisher (optional): "); !ok {
		return
	}
	if in.Category, ok = sh.in.line("Category (optional): "); !ok {
		return
	}
	if in.ShelfLocation, ok = sh.in.line("Shelf (optional): "); !ok {
		return
	}
	if in.Price, ok = sh.in.amount("Price (optional): ", decimal.Zero); !ok {
		return
	}
	show(sh.mgr.AddBook(sh.ctx, sh.sess, in))
}

func (sh *shell) handleUpdateBook() {
	id, ok := sh.in.int64("Book ID: ")
	if !ok {
		return
	}
	cur, err := sh.mgr.GetBook(sh.ctx, sh.sess, id).Unwrap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	keep := func(label, current string) (string, bool) {
		v, ok := sh.in.line(fmt.Sprintf("%s [%s]: ", label, current))
		if v == "" {
			v = current
		}
		return v, ok
	}
	var in library.BookUpdate
	if in.Title, ok = keep("Title", cur.Title); !ok {
		return
	}
	if in.Author, ok = keep("Author", cur.Author); !ok {
		return
	}
	if in.Publisher, ok = keep("Publisher", cur.Publisher); !ok {
		return
	}
	if in.Category, ok = keep("Category", cur.Category); !ok {
		return
	}
	if in.ShelfLocation, ok = keep("Shelf", cur.ShelfLocation); !ok {
		return
	}
	year, ok := keep("Publication year", strconv.Itoa(cur.PublicationYear))
	if !ok {
		return
	}
	if in.PublicationYear, err = strconv.Atoi(year); err != nil {
		fmt.Printf("Invalid year: %s\n", year)
		return
	}
	if in.Price, ok = sh.in.amount(fmt.Sprintf("Price [%s]: ", cur.Price.StringFixed(2)), cur.Price); !ok {
		return
	}
	show(sh.mgr.UpdateBook(sh.ctx, sh.sess, id, in))
}

func (sh *shell) handleAddMember(kind library.MemberKind) {
	var in library.NewMember
	var ok bool
	if in.FirstName, ok = sh.in.line("First name: "); !ok {
		return
	}
	if in.LastName, ok = sh.in.line("Last name: "); !ok {
		return
	}
	if in.Email, ok = sh.in.line("Email: "); !ok {
		return
	}
	if in.Phone, ok = sh.in.line("Phone (optional): "); !ok {
		return
	}
	if in.Department, ok = sh.in.line("Department: "); !ok {
		return
	}
	if kind == library.KindFaculty {
		if in.Designation, ok = sh.in.line("Designation: "); !ok {
			return
		}
		show(sh.mgr.AddFaculty(sh.ctx, sh.sess, in))
		return
	}
	year, ok := sh.in.line("Year of study: ")
	if !ok {
		return
	}
	in.YearOfStudy, _ = strconv.Atoi(year)
	show(sh.mgr.AddStudent(sh.ctx, sh.sess, in))
}

func (sh *shell) handleUpdateMember() {
	id, ok := sh.in.int64("Member ID: ")
	if !ok {
		return
	}
	cur, err := sh.mgr.GetMember(sh.ctx, sh.sess, id).Unwrap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	keep := func(label, current string) string {
		v, _ := sh.in.line(fmt.Sprintf("%s [%s]: ", label, current))
		if v == "" {
			return current
		}
		return v
	}
	in := library.MemberUpdate{
		FirstName:  keep("First name", cur.FirstName),
		LastName:   keep("Last name", cur.LastName),
		Email:      keep("Email", cur.Email),
		Phone:      keep("Phone", cur.Phone),
		Department: keep("Department", cur.Department()),
	}
	show(sh.mgr.UpdateMember(sh.ctx, sh.sess, id, in))
}

func (sh *shell) handleMyAccount() {
	if sh.sess.MemberID == nil {
		fmt.Println("This account is not linked to a member.")
		return
	}
	sum, err := sh.mgr.MemberLoanSummary(sh.ctx, sh.sess, *sh.sess.MemberID).Unwrap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Loans: %d of %d (%d overdue), %d more allowed, %d days per loan\n",
		sum.ActiveLoans, sum.Limits.MaxBooks, sum.OverdueLoans, sum.RemainingSlots, sum.Limits.MaxIssueDays)
	fmt.Printf("Unpaid fines: %s\n", sum.UnpaidFines.StringFixed(2))
}

func (sh *shell) handleIssue() {
	ref, ok := sh.in.line("Book ID or code: ")
	if !ok {
		return
	}
	bookID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		book, err := sh.mgr.GetBookByCode(sh.ctx, sh.sess, ref).Unwrap()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		bookID = book.ID
	}

	prompt := "Member ID: "
	if sh.sess.MemberID != nil {
		prompt = fmt.Sprintf("Member ID [%d]: ", *sh.sess.MemberID)
	}
	s, ok := sh.in.line(prompt)
	if !ok {
		return
	}
	var memberID int64
	switch {
	case s == "" && sh.sess.MemberID != nil:
		memberID = *sh.sess.MemberID
	default:
		if memberID, err = strconv.ParseInt(s, 10, 64); err != nil {
			fmt.Printf("Invalid member ID: %s\n", s)
			return
		}
	}
	show(sh.mgr.IssueBook(sh.ctx, sh.sess, bookID, memberID, ""))
}

func (sh *shell) handlePayFine() {
	id, ok := sh.in.int64("Fine ID: ")
	if !ok {
		return
	}
	amount, ok := sh.in.amount("Amount: ", decimal.Zero)
	if !ok {
		return
	}
	show(sh.mgr.PayFine(sh.ctx, sh.sess, id, amount))
}

func (sh *shell) handleWaiveFine() {
	id, ok := sh.in.int64("Fine ID: ")
	if !ok {
		return
	}
	reason, ok := sh.in.line("Reason: ")
	if !ok {
		return
	}
	show(sh.mgr.WaiveFine(sh.ctx, sh.sess, id, reason))
}

func (sh *shell) handleSetRole() {
	id, ok := sh.in.int64("User ID: ")
	if !ok {
		return
	}
	s, ok := sh.in.line("Role (user/admin): ")
	if !ok {
		return
	}
	role, err := library.ParseRole(s)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	show(sh.mgr.UpdateUserRole(sh.ctx, sh.sess, id, role))
}

func (sh *shell) printBooks(r library.Result[[]*library.Book]) {
	if !r.Success {
		fmt.Printf("Error: %s\n", r.Message)
		return
	}
	if len(r.Value) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-5s %-15s %-30s %-25s %-10s\n", "ID", "Code", "Title", "Author", "Available")
	for _, b := range r.Value {
		fmt.Printf("%-5d %-15s %-30s %-25s %-10t\n",
			b.ID, b.Code, truncateString(b.Title, 30), truncateString(b.Author, 25), b.Available)
	}
}

func (sh *shell) printMembers(r library.Result[[]*library.Member]) {
	if !r.Success {
		fmt.Printf("Error: %s\n", r.Message)
		return
	}
	if len(r.Value) == 0 {
		fmt.Println("No members found.")
		return
	}
	fmt.Printf("%-5s %-14s %-8s %-28s %-28s %-20s\n", "ID", "Membership", "Type", "Name", "Email", "Department")
	for _, m := range r.Value {
		fmt.Printf("%-5d %-14s %-8s %-28s %-28s %-20s\n",
			m.ID, m.MembershipID, m.Kind, truncateString(m.FullName(), 28),
			truncateString(m.Email, 28), truncateString(m.Department(), 20))
	}
}

func (sh *shell) printLoans(scope library.IssueScope) {
	loans, err := sh.mgr.ListIssues(sh.ctx, sh.sess, library.IssueFilter{Scope: scope}).Unwrap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(loans) == 0 {
		fmt.Println("No loans found.")
		return
	}
	now := time.Now()
	fmt.Printf("%-5s %-15s %-28s %-22s %-11s %-11s %s\n", "ID", "Code", "Title", "Member", "Issued", "Due", "Status")
	for _, l := range loans {
		fmt.Printf("%-5d %-15s %-28s %-22s %-11s %-11s %s\n",
			l.ID, l.BookCode, truncateString(l.BookTitle, 28), truncateString(l.MemberName, 22),
			l.IssueDate.Local().Format("2006-01-02"), l.DueDate.Local().Format("2006-01-02"), l.StatusLabel(now))
	}
}

func (sh *shell) printFines(pendingOnly bool) {
	fines, err := sh.mgr.ListFines(sh.ctx, sh.sess, library.FineFilter{PendingOnly: pendingOnly}).Unwrap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(fines) == 0 {
		fmt.Println("No fines found.")
		return
	}
	fmt.Printf("%-5s %-22s %-28s %-5s %-9s %-9s %-9s %s\n", "ID", "Member", "Title", "Days", "Total", "Paid", "Due", "Status")
	for _, f := range fines {
		fmt.Printf("%-5d %-22s %-28s %-5d %-9s %-9s %-9s %s\n",
			f.ID, truncateString(f.MemberName, 22), truncateString(f.BookTitle, 28), f.DaysOverdue,
			f.TotalAmount.StringFixed(2), f.AmountPaid.StringFixed(2), f.Remaining().StringFixed(2), f.Status)
	}
}

func (sh *shell) printUsers() {
	users, err := sh.mgr.ListUsers(sh.ctx, sh.sess).Unwrap()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%-5s %-20s %-28s %-6s %-8s %s\n", "ID", "Username", "Email", "Role", "Active", "Last login")
	for _, u := range users {
		last := "never"
		if u.LastLoginAt != nil {
			last = u.LastLoginAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-5d %-20s %-28s %-6s %-8t %s\n",
			u.ID, truncateString(u.Username, 20), truncateString(u.Email, 28), u.Role, u.Active, last)
	}
}
