package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/KarpelesLab/ospfs"
)

const usage = `ospfsutil - ospfs image CLI tool

Usage:
  ospfsutil mkfs <image> <blocks> <inodes>   Format a fresh image
  ospfsutil ls <image> [<path>]              List files in image
  ospfsutil cat <image> <file>               Display contents of a file
  ospfsutil mkdir <image> <dir>              Create a directory
  ospfsutil rm <image> <file>                Unlink a file
  ospfsutil stat <image> <path>              Show inode details
  ospfsutil help                             Show this help message
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "mkfs":
		err = cmdMkfs(os.Args[2:])
	case "ls":
		err = cmdLs(os.Args[2:])
	case "cat":
		err = cmdCat(os.Args[2:])
	case "mkdir":
		err = cmdMkdir(os.Args[2:])
	case "rm":
		err = cmdRm(os.Args[2:])
	case "stat":
		err = cmdStat(os.Args[2:])
	case "help":
		fmt.Println(usage)
		return
	default:
		fmt.Printf("Error: unknown command '%s'\n", os.Args[1])
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func openImage(path string) (*ospfs.Image, error) {
	return ospfs.LoadImageFile(path)
}

func cmdMkfs(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: ospfsutil mkfs <image> <blocks> <inodes>")
	}
	var nblocks, ninodes uint32
	if _, err := fmt.Sscanf(args[1], "%d", &nblocks); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(args[2], "%d", &ninodes); err != nil {
		return err
	}
	data := make([]byte, uint64(nblocks)*ospfs.BlockSize)
	img, err := ospfs.Mkfs(data, nblocks, ninodes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return err
	}
	_ = img
	return nil
}

func cmdLs(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ospfsutil ls <image> [<path>]")
	}
	img, err := openImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer img.Close()

	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	view := ospfs.NewFSView(img)
	ents, err := fs.ReadDir(view, path)
	if err != nil {
		return fmt.Errorf("failed to read directory '%s': %w", path, err)
	}
	for _, e := range ents {
		info, err := e.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to stat '%s': %s\n", e.Name(), err)
			continue
		}
		typeChar := "-"
		if info.IsDir() {
			typeChar = "d"
		} else if info.Mode()&fs.ModeSymlink != 0 {
			typeChar = "l"
		}
		fmt.Printf("%s%s %8d %s\n", typeChar, info.Mode().Perm(), info.Size(), e.Name())
	}
	return nil
}

func cmdCat(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ospfsutil cat <image> <file>")
	}
	img, err := openImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer img.Close()

	view := ospfs.NewFSView(img)
	data, err := fs.ReadFile(view, args[1])
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", args[1], err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func cmdMkdir(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ospfsutil mkdir <image> <dir>")
	}
	img, err := openImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer img.Close()

	parent, name := splitPath(args[1])
	view := ospfs.NewFSView(img)
	parentIno, err := resolveDir(view, img, parent)
	if err != nil {
		return err
	}
	_, err = img.Mkdir(parentIno, name, 0755)
	if err == nil {
		img.Sync()
	}
	return err
}

func cmdRm(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ospfsutil rm <image> <file>")
	}
	img, err := openImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer img.Close()

	parent, name := splitPath(args[1])
	view := ospfs.NewFSView(img)
	parentIno, err := resolveDir(view, img, parent)
	if err != nil {
		return err
	}
	if err := img.Unlink(parentIno, name); err != nil {
		return err
	}
	img.Sync()
	return nil
}

func cmdStat(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ospfsutil stat <image> <path>")
	}
	img, err := openImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer img.Close()

	view := ospfs.NewFSView(img)
	info, err := fs.Stat(view, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Name:  %s\n", info.Name())
	fmt.Printf("Size:  %d\n", info.Size())
	fmt.Printf("Mode:  %s\n", info.Mode())
	return nil
}

func splitPath(p string) (dir, name string) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i], p[i+1:]
		}
	}
	return ".", p
}

func resolveDir(view *ospfs.FSView, img *ospfs.Image, path string) (uint32, error) {
	if path == "" || path == "." {
		return ospfs.RootIno, nil
	}
	info, err := fs.Stat(view, path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("'%s' is not a directory", path)
	}
	ino, err := lookupPath(img, path)
	if err != nil {
		return 0, err
	}
	return ino, nil
}

func lookupPath(img *ospfs.Image, path string) (uint32, error) {
	cur := uint32(ospfs.RootIno)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			part := path[start:i]
			start = i + 1
			if part == "" {
				continue
			}
			next, err := img.Lookup(cur, part)
			if err != nil {
				return 0, err
			}
			cur = next
		}
	}
	return cur, nil
}
