package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/export"
	"github.com/garyjia/invoice-manager/internal/infrastructure/storage"
	"github.com/garyjia/invoice-manager/internal/preview"
	"github.com/garyjia/invoice-manager/internal/render"
)

var errMissingID = errors.New("invoice id argument is required")

func invoiceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "number", Usage: "invoice number (generated when omitted)"},
		&cli.StringFlag{Name: "date", Usage: "invoice date, YYYY-MM-DD (today when omitted)"},
		&cli.StringFlag{Name: "name", Usage: "employee name"},
		&cli.StringFlag{Name: "employee-id", Usage: "employee id"},
		&cli.StringFlag{Name: "email", Usage: "employee email"},
		&cli.StringFlag{Name: "address", Usage: "employee address"},
		&cli.StringFlag{Name: "mobile", Usage: "employee mobile"},
		&cli.Float64Flag{Name: "tax-rate", Usage: "flat tax percentage", Value: entity.DefaultTaxRate},
		&cli.StringSliceFlag{Name: "item", Usage: `line item "description:hours:rate", repeatable; replaces all items`},
	}
}

func listCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list invoices, newest first",
		Action: func(c *cli.Context) error {
			if err := e.ctrl.Mount(c.Context); err != nil {
				return err
			}
			return printTable(c.App.Writer, e.ctrl.Sorted())
		},
	}
}

func showCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "show one invoice with its line items",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			inv, err := e.mountAndFind(c)
			if err != nil {
				return err
			}
			return printInvoice(c.App.Writer, inv)
		},
	}
}

func byEmployeeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "by-employee",
		Usage:     "list the invoices of one employee",
		ArgsUsage: "<employee-id>",
		Action: func(c *cli.Context) error {
			employeeID := c.Args().First()
			if employeeID == "" {
				return errors.New("employee id argument is required")
			}
			invoices, err := e.ctrl.ListByEmployee(c.Context, employeeID)
			if err != nil {
				return err
			}
			entity.SortByDateDesc(invoices)
			return printTable(c.App.Writer, invoices)
		},
	}
}

func createCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "create an invoice",
		Flags: invoiceFlags(),
		Action: func(c *cli.Context) error {
			if err := e.ctrl.Mount(c.Context); err != nil {
				return err
			}
			if err := e.ctrl.EditDraft(func(d *entity.Draft) error { return applyFlags(c, d, e) }); err != nil {
				return err
			}
			created, err := e.ctrl.Save(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "created %s (%s)\n", created.ID, created.InvoiceNumber)
			return nil
		},
	}
}

func editCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "edit an invoice; only the given flags change",
		ArgsUsage: "<id>",
		Flags:     invoiceFlags(),
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return errMissingID
			}
			if err := e.ctrl.Mount(c.Context); err != nil {
				return err
			}
			if err := e.ctrl.Open(id); err != nil {
				return err
			}
			if err := e.ctrl.EditDraft(func(d *entity.Draft) error { return applyFlags(c, d, e) }); err != nil {
				return err
			}
			updated, err := e.ctrl.Save(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "updated %s (%s)\n", updated.ID, updated.InvoiceNumber)
			return nil
		},
	}
}

func deleteCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete an invoice",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return errMissingID
			}
			if err := e.ctrl.Mount(c.Context); err != nil {
				return err
			}
			state := e.ctrl.Snapshot()
			number := ""
			if i := state.IndexOf(id); i >= 0 {
				number = state.Invoices[i].InvoiceNumber
			}
			if err := e.ctrl.Delete(c.Context, id); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "deleted %s\n", id)

			// drop the locally rendered copy too
			if number != "" {
				artifact := storage.SanitizeFilename(render.Filename(number))
				if e.output.Exists(c.Context, artifact) {
					if err := e.output.Delete(c.Context, artifact); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "removed %s\n", e.output.GetFullPath(artifact))
				}
			}
			return nil
		},
	}
}

func renderCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "render an invoice to PDF in the output directory",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "archive", Usage: "also upload the PDF to the configured S3 bucket"},
		},
		Action: func(c *cli.Context) error {
			inv, err := e.mountAndFind(c)
			if err != nil {
				return err
			}
			artifact, err := e.renderer.Render(inv)
			if err != nil {
				return err
			}
			path, err := e.output.SaveArtifact(c.Context, artifact.Filename, artifact.Content)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s (%d pages)\n", path, artifact.Pages)

			if c.Bool("archive") || e.cfg.Archive.Enabled {
				archive, err := storage.NewS3Archive(storage.S3Config{
					Region:   e.cfg.Archive.Region,
					Bucket:   e.cfg.Archive.Bucket,
					Prefix:   e.cfg.Archive.Prefix,
					Endpoint: e.cfg.Archive.Endpoint,
				}, e.logger)
				if err != nil {
					return err
				}
				location, err := archive.Archive(c.Context, artifact.Filename, artifact.Content)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "archived %s\n", location)
			}
			return nil
		},
	}
}

func downloadCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "download the store-rendered PDF of an invoice",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return errMissingID
			}
			doc, err := e.ctrl.Download(c.Context, id)
			if err != nil {
				return err
			}
			path, err := e.output.SaveArtifact(c.Context, doc.Filename, doc.Content)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
			return nil
		},
	}
}

func emailCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "email",
		Usage:     "ask the store to email an invoice to its employee",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return errMissingID
			}
			if err := e.ctrl.SendEmail(c.Context, id); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "email requested for %s\n", id)
			return nil
		},
	}
}

func customEmailCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "custom-email",
		Usage: "ask the store to send a free-form email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true},
			&cli.StringFlag{Name: "subject", Required: true},
			&cli.StringFlag{Name: "body"},
			&cli.StringFlag{Name: "invoice", Usage: "invoice id whose PDF to attach"},
		},
		Action: func(c *cli.Context) error {
			err := e.ctrl.SendCustomEmail(c.Context, port.CustomEmail{
				To:                    c.String("to"),
				Subject:               c.String("subject"),
				Body:                  c.String("body"),
				SendInvoiceAttachment: c.String("invoice") != "",
				InvoiceID:             c.String("invoice"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "email requested for %s\n", c.String("to"))
			return nil
		},
	}
}

func exportCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export all invoices to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "invoices.xlsx", Usage: "workbook path"},
		},
		Action: func(c *cli.Context) error {
			if err := e.ctrl.Mount(c.Context); err != nil {
				return err
			}
			invoices := e.ctrl.Sorted()
			if err := export.NewExporter(e.logger).SaveAs(c.String("out"), invoices); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "exported %d invoices to %s\n", len(invoices), c.String("out"))
			return nil
		},
	}
}

func previewCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "write one page of an invoice PDF as PNG",
		ArgsUsage: "[<id>]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "preview a PDF already in the output directory instead of rendering <id>"},
			&cli.IntFlag{Name: "page", Value: 1, Usage: "1-based page number"},
			&cli.Float64Flag{Name: "dpi", Value: preview.DefaultDPI},
			&cli.StringFlag{Name: "out", Usage: "PNG path (defaults into the output directory)"},
		},
		Action: func(c *cli.Context) error {
			source, content, err := e.previewSource(c)
			if err != nil {
				return err
			}

			reader := preview.NewReader(c.Float64("dpi"), e.logger)
			summary, err := reader.Inspect(content)
			if err != nil {
				return err
			}
			png, err := reader.PagePNG(content, c.Int("page"))
			if err != nil {
				return err
			}

			out := c.String("out")
			if out == "" {
				name := fmt.Sprintf("%s-page%d.png", strings.TrimSuffix(source, ".pdf"), c.Int("page"))
				if out, err = e.output.SaveArtifact(c.Context, name, png); err != nil {
					return err
				}
			} else {
				if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
					return err
				}
				if err := os.WriteFile(out, png, 0644); err != nil {
					return err
				}
			}

			e.logger.Debug("Preview written", zap.String("path", out), zap.Int("pages", summary.PageCount()))
			fmt.Fprintf(c.App.Writer, "wrote %s (page %d of %d)\n", out, c.Int("page"), summary.PageCount())
			return nil
		},
	}
}

// previewSource returns the name and bytes of the PDF to preview
func (e *env) previewSource(c *cli.Context) (string, []byte, error) {
	if file := c.String("file"); file != "" {
		name := storage.SanitizeFilename(file)
		content, err := e.output.Read(c.Context, name)
		if err != nil {
			return "", nil, err
		}
		return name, content, nil
	}

	inv, err := e.mountAndFind(c)
	if err != nil {
		return "", nil, err
	}
	artifact, err := e.renderer.Render(inv)
	if err != nil {
		return "", nil, err
	}
	return artifact.Filename, artifact.Content, nil
}

func (e *env) mountAndFind(c *cli.Context) (entity.Invoice, error) {
	id := c.Args().First()
	if id == "" {
		return entity.Invoice{}, errMissingID
	}
	if err := e.ctrl.Mount(c.Context); err != nil {
		return entity.Invoice{}, err
	}
	state := e.ctrl.Snapshot()
	i := state.IndexOf(id)
	if i < 0 {
		return entity.Invoice{}, fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	return state.Invoices[i], nil
}

func printTable(w io.Writer, invoices []entity.Invoice) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tDATE\tEMPLOYEE\tITEMS\tTOTAL")
	for _, inv := range invoices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%s)\t%d\t%s\n",
			inv.ID, inv.InvoiceNumber, inv.Date, inv.EmployeeName, inv.EmployeeID,
			len(inv.Services), entity.FormatAmount(inv.Totals().GrandTotal))
	}
	return tw.Flush()
}

func printInvoice(w io.Writer, inv entity.Invoice) error {
	totals := inv.Totals()
	fmt.Fprintf(w, "Invoice %s  (%s)\n", inv.InvoiceNumber, inv.ID)
	fmt.Fprintf(w, "Date:     %s\n", inv.Date)
	fmt.Fprintf(w, "Employee: %s (%s)\n", inv.EmployeeName, inv.EmployeeID)
	fmt.Fprintf(w, "          %s | %s | %s\n\n", inv.EmployeeEmail, inv.EmployeeMobile, inv.EmployeeAddress)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DESCRIPTION\tHOURS\tRATE\tTOTAL\t")
	for _, item := range inv.Services {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", item.Description,
			entity.FormatAmount(item.Hours), entity.FormatAmount(item.Rate), entity.FormatAmount(item.Amount()))
	}
	fmt.Fprintf(tw, "\t\tSubtotal\t%s\t\n", entity.FormatAmount(totals.SubTotal))
	fmt.Fprintf(tw, "\t\tTax (%s%%)\t%s\t\n", entity.FormatRate(inv.TaxRate), entity.FormatAmount(totals.TaxAmount))
	fmt.Fprintf(tw, "\t\tGrand Total\t%s\t\n", entity.FormatAmount(totals.GrandTotal))
	return tw.Flush()
}
