package main

import (
	"flag"
	"fmt"
	"os"

	"WalletCampaign/internal/campaign"
	"WalletCampaign/internal/config"
	"WalletCampaign/internal/logger"
	"WalletCampaign/internal/model"
	"WalletCampaign/internal/secrets"
	"WalletCampaign/internal/store"
)

const usage = `usage:
  walletctl encrypt -in keys.txt   encrypt a plaintext key file into the secrets file
  walletctl remove <address>       delete a wallet record from the state file`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encrypt":
		err = encrypt(cfg, os.Args[2:])
	case "remove":
		err = remove(cfg, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func encrypt(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	in := fs.String("in", cfg.Secrets.PlainFile, "plaintext key file, one key per line")
	out := fs.String("out", cfg.Secrets.EncryptedFile, "encrypted secrets file to write")
	fs.Parse(args)

	keys, err := secrets.LoadPlain(*in)
	if err != nil {
		return err
	}
	wallets, err := campaign.WalletsFromSecrets(keys)
	if err != nil {
		return err
	}

	password := os.Getenv("SECRETS_PASSWORD")
	if password == "" {
		if password, err = secrets.TerminalPrompt("New secrets password: "); err != nil {
			return err
		}
		confirm, err := secrets.TerminalPrompt("Repeat password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return fmt.Errorf("passwords do not match")
		}
	}

	s := secrets.NewStore(*out)
	s.Iterations = cfg.Secrets.Iterations
	if err := s.Encrypt(keys, password); err != nil {
		return err
	}
	fmt.Printf("Encrypted %d keys (%d wallets) into %s\n", len(keys), len(wallets), *out)
	fmt.Printf("You can now delete %s\n", *in)
	return nil
}

func remove(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("remove takes exactly one address")
	}
	log, err := logger.New(cfg.Env, cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.Open(cfg.Campaign.StateFile, log)
	if err != nil {
		return err
	}
	addr := model.CanonicalAddress(args[0])
	if !st.Delete(addr) {
		return fmt.Errorf("no record for %s", addr)
	}
	fmt.Printf("Removed %s\n", addr)
	return nil
}
