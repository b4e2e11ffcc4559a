package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pixveil/pixveil/internal/stego"
)

const usage = `stegoctl - embed, view and inspect metered photo artifacts

Usage:
  stegoctl embed   -cover cover.png -image photo.jpg -out artifact.png -sender alice -recipient bob -resource req-1 -views 3
  stegoctl view    -artifact artifact.png -sender alice -viewer bob -resource req-1 [-out photo.jpg]
  stegoctl inspect -artifact artifact.png -sender alice -viewer bob -resource req-1
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "embed":
		runEmbed(os.Args[2:])
	case "view":
		runView(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func runEmbed(args []string) {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	cover := fs.String("cover", "", "Cover PNG path")
	image := fs.String("image", "", "Photo to hide")
	out := fs.String("out", "artifact.png", "Output artifact path")
	sender := fs.String("sender", "", "Sender username")
	recipient := fs.String("recipient", "", "Recipient username")
	resource := fs.String("resource", "", "Resource identifier (request ID)")
	views := fs.Int("views", 1, "Number of views granted")
	_ = fs.Parse(args)

	if *cover == "" || *image == "" || *sender == "" || *recipient == "" || *resource == "" {
		log.Fatal("Error: -cover, -image, -sender, -recipient and -resource are required")
	}
	if *views < 1 {
		log.Fatal("Error: -views must be at least 1")
	}

	coverPNG, err := os.ReadFile(*cover)
	if err != nil {
		log.Fatalf("Error reading cover: %v", err)
	}

	imageData, err := os.ReadFile(*image)
	if err != nil {
		log.Fatalf("Error reading image: %v", err)
	}

	key := stego.DeriveKey(*sender, *recipient, *resource)
	artifact, err := stego.Encode(coverPNG, imageData, stego.Metadata{
		Sender:         *sender,
		Recipient:      *recipient,
		ResourceID:     *resource,
		ViewsRemaining: *views,
	}, key)
	if err != nil {
		log.Fatalf("Error embedding: %v", err)
	}

	if err := os.WriteFile(*out, artifact, 0600); err != nil {
		log.Fatalf("Error writing artifact: %v", err)
	}

	fmt.Printf("Embedded %d bytes into %s (%d views for %s)\n",
		len(imageData), *out, *views, *recipient)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	artifact := fs.String("artifact", "", "Artifact PNG path")
	sender := fs.String("sender", "", "Sender username")
	viewer := fs.String("viewer", "", "Viewer username")
	resource := fs.String("resource", "", "Resource identifier (request ID)")
	out := fs.String("out", "", "Write the revealed photo to this path")
	_ = fs.Parse(args)

	if *artifact == "" || *sender == "" || *viewer == "" || *resource == "" {
		log.Fatal("Error: -artifact, -sender, -viewer and -resource are required")
	}

	outcome, err := stego.View(*artifact, *sender, *viewer, *resource)
	if err != nil {
		switch {
		case errors.Is(err, stego.ErrViewsExhausted):
			log.Fatal("No views remaining; artifact deleted")
		case errors.Is(err, stego.ErrNotRecipient):
			log.Fatalf("Artifact is not addressed to %s", *viewer)
		case errors.Is(err, stego.ErrDecryptionFailed):
			log.Fatal("Decryption failed; wrong viewer or corrupted artifact")
		default:
			log.Fatalf("Error viewing: %v", err)
		}
	}

	if *out != "" {
		if err := os.WriteFile(*out, outcome.Image, 0600); err != nil {
			log.Fatalf("Error writing photo: %v", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(outcome.Image), *out)
	}

	if outcome.Deleted {
		fmt.Println("Last view consumed; artifact deleted")
		return
	}
	fmt.Printf("Views remaining: %d\n", outcome.ViewsRemaining)
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	artifact := fs.String("artifact", "", "Artifact PNG path")
	sender := fs.String("sender", "", "Sender username")
	viewer := fs.String("viewer", "", "Viewer username")
	resource := fs.String("resource", "", "Resource identifier (request ID)")
	_ = fs.Parse(args)

	if *artifact == "" || *sender == "" || *viewer == "" || *resource == "" {
		log.Fatal("Error: -artifact, -sender, -viewer and -resource are required")
	}

	meta, err := stego.Inspect(*artifact, *sender, *viewer, *resource)
	if err != nil {
		log.Fatalf("Error inspecting: %v", err)
	}

	fmt.Printf("sender:          %s\n", meta.Sender)
	fmt.Printf("recipient:       %s\n", meta.Recipient)
	fmt.Printf("resource:        %s\n", meta.ResourceID)
	fmt.Printf("views remaining: %d\n", meta.ViewsRemaining)
}
