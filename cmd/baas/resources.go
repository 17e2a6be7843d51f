package main

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-baas/sdk"
)

func newListCommand(c *cli) *cobra.Command {
	var opts sdk.QueryOptions
	var embed, fields []string

	cmd := &cobra.Command{
		Use:   "list <route>",
		Short: "List a collection, e.g. articles or commerce/products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Embed, opts.Fields = embed, fields
			resp, err := sdk.NewResource(c.app, route(args[0])).Find(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}

	cmd.Flags().StringVar(&opts.SearchQuery, "search", "", "free-text search")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.RecordsPerPage, "rpp", 10, "records per page")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", `sort expression, e.g. "dateCreated|desc"`)
	cmd.Flags().StringSliceVar(&embed, "embed", nil, "related resources to embed")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return")
	return cmd
}

func newGetCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <route> <id>",
		Short: "Fetch one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sdk.NewResource(c.app, route(args[0])).Get(cmd.Context(), args[1], nil)
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}
}

func newCreateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "create <route> <json|->",
		Short: "Create an item from a JSON document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseData(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := sdk.NewResource(c.app, route(args[0])).Create(cmd.Context(), data)
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}
}

func newUpdateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "update <route> <id> <json|->",
		Short: "Update an item from a JSON document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseData(args[2], cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := sdk.NewResource(c.app, route(args[0])).Update(cmd.Context(), args[1], data)
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}
}

func newDeleteCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <route> <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sdk.NewResource(c.app, route(args[0])).Remove(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}
}

func newActionCommand(c *cli) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "action <route> <id> <action> [json|-]",
		Short: "Invoke an item action, e.g. articles a1 publish",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data interface{}
			if len(args) == 4 {
				var err error
				if data, err = parseData(args[3], cmd.InOrStdin()); err != nil {
					return err
				}
			}
			resp, err := sdk.NewResource(c.app, route(args[0])).
				Action(cmd.Context(), strings.ToUpper(method), args[1], args[2], data)
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPut, "HTTP method")
	return cmd
}

// route normalizes a user supplied module route
func route(arg string) string {
	return strings.Trim(arg, "/")
}
