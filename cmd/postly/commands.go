package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"postly/internal/client"
)

var errNotSignedIn = errors.New("not signed in; run `postly login` first")

func flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func (a *app) requireSession() (*client.User, error) {
	snap := a.session.Snapshot()
	if snap.State != client.StateAuthenticated || snap.User == nil {
		return nil, errNotSignedIn
	}
	return snap.User, nil
}

func runSignup(ctx context.Context, a *app, args []string) error {
	fs := flagSet("signup")
	req := client.SignupRequest{}
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.Birthday, "birthday", "", "birthday, YYYY-MM-DD")
	fs.StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Email == "" || req.FirstName == "" || req.LastName == "" || req.Birthday == "" {
		return errors.New("--email, --first, --last and --birthday are required")
	}
	if req.Password == "" {
		pw, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		req.Password = pw
	}

	if err := a.session.Signup(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created for %s. Run `postly login --email %s` to sign in.\n", req.Email, req.Email)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}
	if *password == "" {
		pw, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		*password = pw
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	user := a.session.Snapshot().User
	fmt.Fprintf(a.out, "Signed in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func runLogout(_ context.Context, a *app, _ []string) error {
	a.session.Logout()
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	user, err := a.requireSession()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s <%s>\nid: %s\nmember since %s\n",
		user.FirstName, user.LastName, user.Email, user.ID, user.CreationDate.Format("2006-01-02"))
	return nil
}

func runFeed(ctx context.Context, a *app, args []string) error {
	fs := flagSet("feed")
	skip := fs.Int("skip", 0, "posts to skip")
	limit := fs.Int("limit", 10, "posts to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp := a.api.ListPosts(ctx, *skip, *limit)
	if err := resp.Err(); err != nil {
		return err
	}
	a.printPosts(resp.Data)
	return nil
}

func runUserPosts(ctx context.Context, a *app, args []string) error {
	fs := flagSet("user-posts")
	skip := fs.Int("skip", 0, "posts to skip")
	limit := fs.Int("limit", 10, "posts to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID := fs.Arg(0)
	if userID == "" {
		user, err := a.requireSession()
		if err != nil {
			return err
		}
		userID = user.ID
	}

	resp := a.api.ListUserPosts(ctx, userID, *skip, *limit)
	if err := resp.Err(); err != nil {
		return err
	}
	a.printPosts(resp.Data)
	return nil
}

func runShow(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show POST_ID")
	}
	resp := a.api.GetPost(ctx, args[0])
	if err := resp.Err(); err != nil {
		return err
	}
	a.printPost(resp.Data)
	return nil
}

func runPost(ctx context.Context, a *app, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	text := strings.Join(args, " ")
	if text == "-" {
		raw, err := io.ReadAll(a.in)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(raw), "\n")
	}

	resp := a.api.CreatePost(ctx, text)
	if err := resp.Err(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Post created.")
	a.printPost(resp.Data)
	return nil
}

func runEdit(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: edit POST_ID TEXT")
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	resp := a.api.UpdatePost(ctx, args[0], strings.Join(args[1:], " "))
	if err := resp.Err(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Post updated.")
	a.printPost(resp.Data)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete POST_ID")
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	resp := a.api.DeletePost(ctx, args[0])
	if err := resp.Err(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Data.Message)
	return nil
}

func runUpload(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: upload POST_ID FILE")
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	path := args[1]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if err := client.ValidateMedia(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), fi.Size()); err != nil {
		return err
	}

	resp := a.api.UploadMedia(ctx, args[0], path, f)
	if err := resp.Err(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\n%s\n", resp.Data.Message, resp.Data.BlobURL)
	return nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
