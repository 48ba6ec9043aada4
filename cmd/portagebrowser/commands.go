package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/ppphp/portagebrowser/api"
	"github.com/ppphp/portagebrowser/pkg/backend"
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

type command func(ctx context.Context, b *backend.Backend, out *printer, args []string) error

var commands = map[string]command{
	"scan":    cmdScan,
	"list":    cmdList,
	"info":    cmdInfo,
	"updates": cmdUpdates,
	"cache":   cmdCache,
	"verify":  cmdVerify,
	"serve":   cmdServe,
}

func cmdScan(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	if err := b.Scan(ctx); err != nil {
		return err
	}
	res := b.LastResult()
	rows := [][2]string{
		{"packages", fmt.Sprint(res.Packages)},
		{"versions", fmt.Sprint(res.Versions)},
	}
	failed := map[string]string{}
	for t, err := range res.Failed {
		failed[string(t)] = err.Error()
		rows = append(rows, [2]string{"failed " + string(t), err.Error()})
	}
	return out.table(map[string]interface{}{
		"packages": res.Packages, "versions": res.Versions, "failed": failed,
	}, rows)
}

func cmdList(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	pf := pflag.NewFlagSet("list", pflag.ContinueOnError)
	categories := pf.StringSlice("category", nil, "only these categories")
	names := pf.StringSlice("name", nil, "only package names matching these globs")
	installed := pf.Bool("installed", false, "only installed packages")
	exclude := pf.StringSlice("exclude-category", nil, "skip these categories")
	if err := pf.Parse(args); err != nil {
		return err
	}
	if err := b.Scan(ctx); err != nil {
		return err
	}
	sel := portage.NewSelector(portage.Include)
	if len(*categories) > 0 || len(*names) > 0 {
		sel.Reset(portage.Exclude)
	}
	for _, c := range *categories {
		sel.IncludeCategory(portage.ParseCategory(c))
	}
	for _, c := range *exclude {
		sel.ExcludeCategory(portage.ParseCategory(c))
	}
	for _, n := range *names {
		if err := sel.IncludeName(n); err != nil {
			return errors.Wrapf(err, "bad pattern %q", n)
		}
	}
	if *installed {
		sel.ExcludeInstalled(false)
	}
	l, err := b.Select(ctx, sel)
	if err != nil {
		return err
	}
	// update flags need the slots and keywords of installed packages
	inst := portage.NewSelector(portage.Exclude)
	inst.IncludeInstalled(true)
	if withDetails, err := inst.Select(ctx, l); err != nil {
		return err
	} else if err := b.LoadListDetails(ctx, withDetails); err != nil {
		return err
	}
	arch := b.Arch()
	rows := []packageRow{}
	b.View(func(*portage.PackageList) {
		for _, p := range l.Packages() {
			rows = append(rows, toPackageRow(p, arch))
		}
	})
	return out.packages(rows)
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 {
		return "", errors.Errorf("expected one %s", what)
	}
	return args[0], nil
}

func cmdInfo(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	key, err := oneArg(args, "category/name")
	if err != nil {
		return err
	}
	if err := b.Scan(ctx); err != nil {
		return err
	}
	p, err := b.LoadDetails(ctx, key)
	if err != nil {
		return err
	}
	arch := b.Arch()
	info := packageInfo{Package: p.UniqueName()}
	b.View(func(*portage.PackageList) {
		for _, v := range p.SortedVersionList() {
			info.Versions = append(info.Versions, toVersionRow(v, arch))
		}
	})
	return out.info(info)
}

func cmdUpdates(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	if err := b.Scan(ctx); err != nil {
		return err
	}
	ups, err := b.Updates(ctx)
	if err != nil {
		return err
	}
	arch := b.Arch()
	rows := []packageRow{}
	b.View(func(*portage.PackageList) {
		for _, p := range ups {
			rows = append(rows, toPackageRow(p, arch))
		}
	})
	return out.packages(rows)
}

func cmdCache(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	op, err := oneArg(args, "of save, load")
	if err != nil {
		return err
	}
	switch op {
	case "save":
		b.Conf.Scan.UseCacheFile = false
		if err := b.Scan(ctx); err != nil {
			return err
		}
		return b.SaveCache(ctx)
	case "load":
		if err := b.LoadCache(ctx); err != nil {
			return err
		}
		res := b.LastResult()
		return out.table(res, [][2]string{
			{"packages", fmt.Sprint(res.Packages)},
			{"versions", fmt.Sprint(res.Versions)},
		})
	}
	return errors.Errorf("unknown cache operation %q", op)
}

func cmdVerify(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	key, err := oneArg(args, "category/name")
	if err != nil {
		return err
	}
	if err := b.Scan(ctx); err != nil {
		return err
	}
	res, err := b.Verify(ctx, key)
	if err != nil {
		return err
	}
	report := map[string]map[string]string{}
	rows := [][2]string{}
	vers := make([]string, 0, len(res))
	for v := range res {
		vers = append(vers, v)
	}
	sort.Strings(vers)
	bad := 0
	for _, v := range vers {
		report[v] = map[string]string{}
		files := make([]string, 0, len(res[v]))
		for f := range res[v] {
			files = append(files, f)
		}
		sort.Strings(files)
		for _, f := range files {
			s := "ok"
			if err := res[v][f]; err != nil {
				s = err.Error()
				if !portage.IsNotFound(err) {
					bad++
				}
			}
			report[v][f] = s
			rows = append(rows, [2]string{v + " " + f, s})
		}
	}
	if err := out.table(report, rows); err != nil {
		return err
	}
	if bad > 0 {
		return errors.Errorf("%d distfiles failed verification", bad)
	}
	return nil
}

func cmdServe(ctx context.Context, b *backend.Backend, out *printer, args []string) error {
	if err := b.Scan(ctx); err != nil {
		return err
	}
	addr := fmt.Sprintf("127.0.0.1:%d", b.Conf.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.New(b, b.Conf.Server.WebDir)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	msg.Log.Infof("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
