package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies in the local workspace",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.local.CreateCompany(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			companies, err := a.local.ListCompanies(context.Background())
			if err != nil {
				return err
			}
			rows := make([][2]string, 0, len(companies))
			for _, c := range companies {
				rows = append(rows, [2]string{c.ID, c.Name})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([2]string{"ID", "NAME"}, rows, isTerminal()))
			return nil
		},
	})

	return cmd
}

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage team members",
	}

	var email string
	add := &cobra.Command{
		Use:   "add <company id or name> <member name>",
		Short: "Add a team member to a company",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := context.Background()

			company, err := a.workspace.ResolveCompany(ctx, "", args[0])
			if err != nil {
				company, err = a.workspace.ResolveCompany(ctx, args[0], "")
				if err != nil {
					return err
				}
			}
			m, err := a.local.CreateMember(ctx, company.ID, args[1], email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Name, company.Name)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "Member email")
	cmd.AddCommand(add)

	return cmd
}
