package actions

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/sonofy/dwhpipe/config"
	"github.com/sonofy/dwhpipe/helper"
)

type DefaultAddConfig struct {
	Store DefaultsStore `errorTxt:"config-file" mandatory:"yes"`
	Key   string        `errorTxt:"key" mandatory:"yes"`
	Value string        `errorTxt:"value" mandatory:"yes"`
	Force bool
	Out   io.Writer
}

type DefaultRemoveConfig struct {
	Store DefaultsStore `errorTxt:"config-file" mandatory:"yes"`
	Key   string        `errorTxt:"key" mandatory:"yes"`
	Out   io.Writer
}

type DefaultListConfig struct {
	Store DefaultsStore `errorTxt:"config-file" mandatory:"yes"`
	Out   io.Writer
}

func outOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// RunDefaultAdd adds key+value to the defaults store.
// If cfg.Force is not set then it returns an error when the key exists.
// The underlying file is created on first write.
func RunDefaultAdd(cfg *DefaultAddConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	var val string
	err := cfg.Store.Get(cfg.Key, &val)
	if err == nil && !cfg.Force { // if key exists and we're not allowed to overwrite...
		return fmt.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	} else if err != nil && !isNotFound(err) { // else there was an unexpected error...
		return err
	}
	if err := cfg.Store.Set(cfg.Key, cfg.Value); err != nil {
		return fmt.Errorf("error writing config file after adding: %w", err)
	}
	fmt.Fprintf(outOrStdout(cfg.Out), "Key %q added\n", cfg.Key)
	return nil
}

// RunDefaultRemove removes a key from the defaults store.
func RunDefaultRemove(cfg *DefaultRemoveConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if err := cfg.Store.Delete(cfg.Key); err != nil {
		return fmt.Errorf("unable to delete key %q from config: %w", cfg.Key, err)
	}
	fmt.Fprintf(outOrStdout(cfg.Out), "Key %q removed\n", cfg.Key)
	return nil
}

// RunDefaultList prints every key and value in the defaults store.
func RunDefaultList(cfg *DefaultListConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	keys, err := cfg.Store.GetAllKeys()
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(outOrStdout(cfg.Out))
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Key", "Value"})
	for _, k := range keys {
		var v string
		if err := cfg.Store.Get(k, &v); err != nil {
			return err
		}
		table.Append([]string{k, v})
	}
	table.Render()
	return nil
}

func isNotFound(err error) bool {
	return errors.As(err, &config.KeyNotFoundError{}) || errors.As(err, &config.FileNotFoundError{})
}
